package manifest

import (
	"errors"
	"strings"
)

const digestLen = 32

var (
	errNoSeparator = errors.New("missing digest separator")
	errEmptyPath   = errors.New("empty path")
	errBadDigest   = errors.New("malformed digest")
)

// ParseChecksumLine parses one `path:digest` line of a checksum manifest.
//
// The digest follows the last colon, so paths may themselves contain colons
// (drive letters included). An empty digest is valid and records a file
// that could not be read when the manifest was built.
func ParseChecksumLine(line string) (Entry, error) {
	i := strings.LastIndexByte(line, ':')
	if i < 0 {
		return Entry{}, errNoSeparator
	}

	path, digest := line[:i], strings.ToLower(line[i+1:])
	if path == "" {
		return Entry{}, errEmptyPath
	}
	if digest != "" && !isHexDigest(digest) {
		return Entry{}, errBadDigest
	}

	return Entry{Path: path, Digest: digest}, nil
}

// FormatChecksumLine renders an entry as a checksum manifest line, without
// the trailing newline.
func FormatChecksumLine(e Entry) string {
	return e.Path + ":" + e.Digest
}

func isHexDigest(s string) bool {
	if len(s) != digestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
