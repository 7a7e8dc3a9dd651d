package auditlogs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/logger"
)

// tailReadBytes bounds how much of the log file Latest scans. Entries older
// than the window are only reachable through the database store.
const tailReadBytes = 256 * 1024

// FileSink appends entries as JSON lines. It doubles as a Store by reading
// the file tail, so the logs endpoint works on deployments without a
// database.
type FileSink struct {
	writer *logger.AsyncFileWriter
	path   string
}

func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}
	writer, err := logger.NewAsyncFileWriter(path, 32*1024)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileSink{writer: writer, path: path}, nil
}

func (s *FileSink) Name() string {
	return "file"
}

func (s *FileSink) Write(_ context.Context, entry audit.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	_, err = s.writer.Write(append(data, '\n'))
	return err
}

// Latest returns up to limit entries from the end of the file, newest first.
// Lines that fail to parse (partial writes, manual edits) are skipped.
func (s *FileSink) Latest(_ context.Context, limit int) ([]audit.Entry, error) {
	s.writer.Flush()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	offset := info.Size() - tailReadBytes
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	lines := bytes.Split(data, []byte{'\n'})
	if offset > 0 && len(lines) > 0 {
		// First line of a mid-file read is almost certainly truncated.
		lines = lines[1:]
	}

	entries := make([]audit.Entry, 0, limit)
	for i := len(lines) - 1; i >= 0 && len(entries) < limit; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 {
			continue
		}
		var entry audit.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *FileSink) Close() {
	s.writer.Close()
}
