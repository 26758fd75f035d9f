package lib

import (
	"path"
	"strings"
)

// RemotePath is a slash-separated path in the namespace of the remote SFTP
// server. It is a distinct type so that remote paths do not get mixed up with
// local paths, whose separator depends on the operating system.
type RemotePath string

// JoinRemote joins the given parts with single slashes, dropping redundant
// slashes and empty parts. The result is absolute when the first part is
// absolute, relative otherwise.
func JoinRemote(parts ...string) RemotePath {
	var segments []string
	for _, part := range parts {
		for _, segment := range strings.Split(part, "/") {
			if segment != "" {
				segments = append(segments, segment)
			}
		}
	}
	joined := strings.Join(segments, "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "/") {
		return RemotePath("/" + joined)
	}
	return RemotePath(joined)
}

func (p RemotePath) String() string {
	return string(p)
}

// Dir returns the parent directory of p.
func (p RemotePath) Dir() RemotePath {
	return RemotePath(path.Dir(string(p)))
}

// IsRoot reports whether p has no ancestor left to create.
func (p RemotePath) IsRoot() bool {
	return p == "" || p == "/" || p == "."
}
