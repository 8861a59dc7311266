package utils

import (
	"io"
	"strings"
)

// MaxDrainBytes bounds how much of an unread body DrainAndClose consumes.
const MaxDrainBytes = 64 << 10

// DrainAndClose closes the given ReadCloser after reading at most MaxDrainBytes of
// what is left. Short leftovers are drained so the transport can reuse the
// connection; longer ones are abandoned with the connection.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, MaxDrainBytes))
	return rc.Close()
}

// IsRemote reports whether source is an http(s) URL rather than a file path.
func IsRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
