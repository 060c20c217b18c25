// Package pathmodel splits a virtual filesystem path into the (container,
// object) pair the Swift three-tier model is built on, and re-joins it into
// a canonical form. A Path is produced only by Split — callers never build
// one from raw strings, so the normalization invariants (§3 "Virtual path")
// hold everywhere a Path appears.
package pathmodel

import (
	"net/url"
	"strings"
)

// Path is the normalized (container, object) pair derived from a raw
// virtual path. The zero value represents the account root ("").
type Path struct {
	container string
	object    string
}

// Split trims leading/trailing slashes, collapses repeated slashes, and
// splits once on the first remaining '/': the first segment (possibly
// empty) names the container, the remainder (possibly empty) names the
// object. Empty container means account-level; empty object means
// container-level.
func Split(raw string) Path {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return Path{}
	}

	trimmed = collapseSlashes(trimmed)

	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		return Path{container: trimmed}
	}

	return Path{container: trimmed[:idx], object: trimmed[idx+1:]}
}

// Join builds a Path directly from an already-known (container, object)
// pair, used by the filesystem projection when constructing a sibling path
// (e.g. a rename destination or a listing child) without re-parsing a raw
// string.
func Join(container, object string) Path {
	return Path{container: container, object: object}
}

// Container returns the container segment, empty at account level.
func (p Path) Container() string { return p.container }

// Object returns the object segment, empty at container level.
func (p Path) Object() string { return p.object }

// IsAccountLevel reports whether this path names the account root.
func (p Path) IsAccountLevel() bool { return p.container == "" }

// IsContainerLevel reports whether this path names a container with no
// object segment.
func (p Path) IsContainerLevel() bool { return p.container != "" && p.object == "" }

// IsObjectLevel reports whether this path names an object inside a
// container.
func (p Path) IsObjectLevel() bool { return p.container != "" && p.object != "" }

// Base returns the last path segment (container name at container level,
// last object segment at object level), with any trailing '/' stripped —
// the "formatted_name" derivation used by directory listings.
func (p Path) Base() string {
	switch {
	case p.IsAccountLevel():
		return ""
	case p.IsContainerLevel():
		return p.container
	default:
		obj := strings.TrimSuffix(p.object, "/")
		if idx := strings.LastIndexByte(obj, '/'); idx >= 0 {
			return obj[idx+1:]
		}

		return obj
	}
}

// Join returns the canonical "/[container[/object]]" form. This is the
// realpath a session surface returns to a client.
func (p Path) Join() string {
	switch {
	case p.IsAccountLevel():
		return "/"
	case p.IsContainerLevel():
		return "/" + p.container
	default:
		return "/" + p.container + "/" + p.object
	}
}

// QuotedContainer returns the container segment percent-encoded for use in
// a backend request URL (UTF-8 bytes, then RFC 3986 percent-encoding).
func (p Path) QuotedContainer() string {
	return url.PathEscape(p.container)
}

// QuotedObject returns the object segment percent-encoded, with '/' left
// unescaped between sub-segments so multi-level object names round-trip.
func (p Path) QuotedObject() string {
	parts := strings.Split(p.object, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}

	return strings.Join(parts, "/")
}

// collapseSlashes reduces any run of consecutive '/' to a single '/'.
func collapseSlashes(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	prevSlash := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			if prevSlash {
				continue
			}

			prevSlash = true
		} else {
			prevSlash = false
		}

		b.WriteByte(c)
	}

	return b.String()
}
