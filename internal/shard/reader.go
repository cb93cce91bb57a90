// Package shard reads and writes the gzip NDJSON files a session is stored
// in. A session directory holds append-only shard files; concatenating them
// in lexicographic filename order yields the session's logical event stream.
package shard

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/jmeyers/combatlog/internal/event"
)

// maxRecordSize bounds a single NDJSON record; state snapshots with large
// combatant lists can run long.
const maxRecordSize = 32 * 1024 * 1024

// ReadDir returns every event in a session directory, shards in
// lexicographic order, records in file order. A shard that fails to
// decompress or parse is logged and skipped; its contents are treated as
// empty and the remaining shards are still read.
func ReadDir(dir string, logger *zap.Logger) ([]event.Event, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.gz"))
	if err != nil {
		return nil, fmt.Errorf("list shards: %w", err)
	}
	sort.Strings(paths)

	var events []event.Event
	for _, p := range paths {
		shardEvents, err := ReadFile(p)
		if err != nil {
			logger.Warn("skipping malformed shard",
				zap.String("shard", filepath.Base(p)),
				zap.Error(err))
			continue
		}
		events = append(events, shardEvents...)
	}
	return events, nil
}

// ReadFile parses one gzip NDJSON shard. Any decompression or parse failure
// makes the whole shard malformed.
func ReadFile(path string) ([]event.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decompress shard: %w", err)
	}
	defer zr.Close()

	var events []event.Event
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxRecordSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := event.Decode(line)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan shard: %w", err)
	}
	return events, nil
}
