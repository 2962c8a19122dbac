// Package hasher computes the content digests stored in checksum manifests.
//
// Digests are MD5 over the full byte content, rendered as lowercase hex.
// Content is streamed through a fixed-size buffer so file size is
// unbounded.
package hasher

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// bufferSize is the chunk size used when streaming content into the hash.
const bufferSize = 64 * 1024

// ReadError reports a file that could not be opened or fully consumed.
// The accompanying digest is always empty.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Sum returns the lowercase hex MD5 digest of everything readable from r.
func Sum(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, bufferSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile returns the digest of the file at path. On failure the digest is
// empty and the error is a *ReadError.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	adviseSequential(f)

	digest, err := Sum(f)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	return digest, nil
}
