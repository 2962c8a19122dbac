// Package history keeps a local log of past qcheck runs in a badger
// database so integrity drift can be reviewed after the fact.
package history

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Record summarises one run.
type Record struct {
	ID        string        `json:"id" yaml:"id"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Mode      string        `json:"mode" yaml:"mode"`
	Root      string        `json:"root" yaml:"root"`
	Files     int           `json:"files" yaml:"files"`
	Bytes     int64         `json:"bytes" yaml:"bytes"`
	Matched   int           `json:"matched" yaml:"matched"`
	Failed    []string      `json:"failed,omitempty" yaml:"failed,omitempty"`
	NotFound  []string      `json:"not_found,omitempty" yaml:"not_found,omitempty"`
	Removed   bool          `json:"removed,omitempty" yaml:"removed,omitempty"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Clean reports whether the run found nothing to flag.
func (r *Record) Clean() bool {
	return r.Error == "" && len(r.Failed) == 0 && len(r.NotFound) == 0
}

// Value encodings. The first byte of every stored value says which one
// follows.
const (
	encodingGob     byte = 0
	encodingGobZstd byte = 1
)

// minCompressSize is the smallest gob payload worth compressing.
const minCompressSize = 256

// codec turns records into stored values. Failed and not-found lists can
// hold thousands of paths, so large payloads are zstd compressed.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &codec{encoder: encoder, decoder: decoder}, nil
}

func (c *codec) encode(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(r); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	payload := buf.Bytes()
	if len(payload) < minCompressSize {
		return append([]byte{encodingGob}, payload...), nil
	}

	out := make([]byte, 1, len(payload)/2+1)
	out[0] = encodingGobZstd
	return c.encoder.EncodeAll(payload, out), nil
}

func (c *codec) decode(data []byte, r *Record) error {
	if len(data) == 0 {
		return fmt.Errorf("decoding record: empty value")
	}

	payload := data[1:]
	switch data[0] {
	case encodingGob:
	case encodingGobZstd:
		var err error
		payload, err = c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return fmt.Errorf("decompressing record: %w", err)
		}
	default:
		return fmt.Errorf("decoding record: unknown encoding %d", data[0])
	}

	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(r); err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}
	return nil
}

func (c *codec) close() {
	c.encoder.Close()
	c.decoder.Close()
}
