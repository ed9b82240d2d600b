// Package iohelper bounds reads of HTTP response bodies. A scan issues
// thousands of requests against a host it does not trust; every body read is
// capped so a hostile response cannot exhaust memory.
package iohelper

import "io"

// Body size limits.
const (
	// SmallMaxBodySize covers header probes and error pages (8KB).
	SmallMaxBodySize int64 = 8 * 1024

	// DefaultMaxBodySize covers typical HTML pages (1MB).
	DefaultMaxBodySize int64 = 1024 * 1024
)

// ReadBody reads from r up to maxSize bytes. A nil reader yields an empty
// slice.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadBodyDefault reads from r with the 1MB default limit.
func ReadBodyDefault(r io.Reader) ([]byte, error) {
	return ReadBody(r, DefaultMaxBodySize)
}

// DrainAndClose consumes any remainder of r (capped at 64KB) and closes it
// when possible, so keep-alive connections can be reused. Safe in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
