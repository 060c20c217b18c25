package ftpsession

import "strings"

// listFlags are the LIST argument tokens an external FTP library's LIST
// command handler should strip before treating the remainder as a path,
// mirroring SwftpFTPProtocol.ftp_LIST's override (most FTP clients send
// "-la" or "-a" out of habit even though this backend has no concept of
// hidden files or permission bits to filter on).
var listFlags = map[string]struct{}{
	"-a":  {},
	"-l":  {},
	"-la": {},
	"-al": {},
}

// StripListFlags removes any whitespace-separated LIST flag tokens from
// raw, leaving only the path argument (or the empty string, meaning the
// current directory).
func StripListFlags(raw string) string {
	fields := strings.Fields(raw)
	kept := make([]string, 0, len(fields))

	for _, f := range fields {
		if _, isFlag := listFlags[strings.ToLower(f)]; isFlag {
			continue
		}

		kept = append(kept, f)
	}

	return strings.Join(kept, " ")
}
