package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/FranksOps/rankwatch/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File

	// write appends to file; replaced in tests to simulate short writes.
	write func([]byte) (int, error)
}

// New creates a new NDJSON-backed storage.Backend. Each line is one sparse
// record; absent fields are simply not present in the object.
func New(filePath string) (storage.Backend, error) {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	return &jsonBackend{
		file:  f,
		write: f.Write,
	}, nil
}

func (b *jsonBackend) SnapshotIDs(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek dataset: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := map[string]bool{}
	var ids []string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec struct {
			RankDate string `json:"rank_date"`
		}
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode dataset line: %w", err)
		}

		id := storage.CanonicalID(rec.RankDate)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return ids, nil
}

func (b *jsonBackend) Append(ctx context.Context, table *ranking.Table) error {
	if table.Empty() {
		return nil
	}

	// Encode the whole snapshot first so a bad record writes nothing.
	var buf []byte
	for _, rec := range table.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	info, err := b.file.Stat()
	if err != nil {
		return fmt.Errorf("stat dataset: %w", err)
	}
	if _, err := b.write(buf); err != nil {
		// Drop whatever part of the snapshot reached the file.
		if terr := b.file.Truncate(info.Size()); terr != nil {
			return errors.Join(fmt.Errorf("write dataset: %w", err), fmt.Errorf("truncate dataset: %w", terr))
		}
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := b.file.Sync(); err != nil {
		return fmt.Errorf("sync dataset: %w", err)
	}
	return nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
