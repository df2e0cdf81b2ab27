package csvbackend

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/FranksOps/rankwatch/internal/ranking"
	"github.com/FranksOps/rankwatch/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger

	// header is the column order of the file; nil until a header exists.
	header []string
	// headless is set when the file has content but no readable header.
	headless bool

	// write appends to file; replaced in tests to simulate short writes.
	write func([]byte) (int, error)
}

// New opens, or creates, the CSV dataset at filePath. The header is written
// with the first appended snapshot and never again.
func New(filePath string, logger *slog.Logger) (storage.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}

	b := &csvBackend{file: f, logger: logger.With("dataset", filePath)}
	b.write = f.Write

	header, err := b.readHeader()
	switch {
	case errors.Is(err, io.EOF):
		// Fresh or blank file.
	case err != nil:
		b.headless = true
		b.logger.Warn("dataset header unreadable, treating as no prior data", "err", err)
	default:
		b.header = header
		if indexOf(header, ranking.FieldRankDate) < 0 {
			b.logger.Warn("dataset header has no rank_date column, appends will be refused", "header", header)
		}
	}

	return b, nil
}

func (b *csvBackend) readHeader() ([]string, error) {
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1
	return r.Read()
}

func (b *csvBackend) SnapshotIDs(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.header == nil {
		return nil, nil
	}
	col := indexOf(b.header, ranking.FieldRankDate)
	if col < 0 {
		return nil, nil
	}

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek dataset: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	seen := map[string]bool{}
	var ids []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		if col >= len(record) {
			continue
		}
		id := storage.CanonicalID(record[col])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *csvBackend) Append(ctx context.Context, table *ranking.Table) error {
	if table.Empty() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	columns := b.header
	writeHeader := false
	switch {
	case columns != nil:
		if indexOf(columns, ranking.FieldRankDate) < 0 {
			return fmt.Errorf("dataset header %v has no %s column", columns, ranking.FieldRankDate)
		}
		if dropped := missing(columns, table.Columns); len(dropped) > 0 {
			b.logger.Warn("dataset header lacks columns, values dropped", "columns", dropped)
		}
	case b.headless:
		columns = table.Columns
		b.logger.Warn("appending without header to a dataset with an unreadable header")
	default:
		columns = append([]string(nil), table.Columns...)
		writeHeader = true
		if err := w.Write(columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := make([]string, len(columns))
	for _, rec := range table.Records {
		for i, c := range columns {
			row[i] = rec[c]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}

	if err := b.commit(buf.Bytes()); err != nil {
		return err
	}
	if writeHeader {
		b.header = columns
	}
	return nil
}

// commit appends data as a whole. A failed write is truncated away so that
// no rows of the snapshot remain on disk.
func (b *csvBackend) commit(data []byte) error {
	info, err := b.file.Stat()
	if err != nil {
		return fmt.Errorf("stat dataset: %w", err)
	}
	size := info.Size()

	if _, err := b.write(data); err != nil {
		if terr := b.file.Truncate(size); terr != nil {
			return errors.Join(fmt.Errorf("write dataset: %w", err), fmt.Errorf("truncate dataset: %w", terr))
		}
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := b.file.Sync(); err != nil {
		return fmt.Errorf("sync dataset: %w", err)
	}
	return nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

// missing returns the names in want that are not in have.
func missing(have, want []string) []string {
	var out []string
	for _, c := range want {
		if indexOf(have, c) < 0 {
			out = append(out, c)
		}
	}
	return out
}
