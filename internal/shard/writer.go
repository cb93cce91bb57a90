package shard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// WriteTuples writes one JSON object per tuple to path as gzip NDJSON,
// creating parent directories as needed. The gzip stream carries no filename
// or mtime header, so identical tuples produce byte-identical files.
func WriteTuples[T any](path string, tuples []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	zw := gzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	enc.SetEscapeHTML(false)
	for _, t := range tuples {
		if err := enc.Encode(t); err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("encode tuple: %w", err)
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize compression: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}
