package swiftclient

// ObjectEntry is a single entry returned by an account or container JSON
// listing. Container entries carry Bytes/ContentType/Hash; account entries
// only carry Name/Count/Bytes; delimited subdir stubs carry only Subdir.
type ObjectEntry struct {
	Name         string `json:"name"`
	Subdir       string `json:"subdir"`
	Bytes        int64  `json:"bytes"`
	ContentType  string `json:"content_type"`
	LastModified string `json:"last_modified"`
	Hash         string `json:"hash"`
	Count        int64  `json:"count"`
}

// IsSubdirStub reports whether this entry is a pseudo-directory stub
// produced by a delimited listing rather than a real object or container.
func (e ObjectEntry) IsSubdirStub() bool {
	return e.Subdir != "" && e.Name == ""
}

// EntryName returns the name to key this entry by: the subdir string for a
// delimiter stub, otherwise the object/container name.
func (e ObjectEntry) EntryName() string {
	if e.IsSubdirStub() {
		return e.Subdir
	}

	return e.Name
}

// HeaderPair is a literal extra request header injected on every backend
// request (the config file's comma-separated "k:v, k:v" extra_headers list).
type HeaderPair struct {
	Key   string
	Value string
}

// ListOptions carries the query parameters accepted by get_account and
// get_container.
type ListOptions struct {
	Limit      int
	Marker     string
	EndMarker  string
	Prefix     string
	Path       string
	Delimiter  string
}
