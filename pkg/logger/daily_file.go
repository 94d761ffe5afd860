package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile is an append-only io.Writer that switches to a new file when the
// calendar date changes: <dir>/<prefix>_YYYY-MM-DD.log
type DailyFile struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	date string
	file *os.File
}

// NewDailyFile creates dir if needed. Files are opened lazily on first write.
func NewDailyFile(dir, prefix string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &DailyFile{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Path returns the file that a write at t lands in
func (d *DailyFile) Path(t time.Time) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s_%s.log", d.prefix, t.Format(time.DateOnly)))
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	date := now.Format(time.DateOnly)
	if d.file == nil || date != d.date {
		if d.file != nil {
			_ = d.file.Close()
			d.file = nil
		}
		f, err := os.OpenFile(d.Path(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return 0, fmt.Errorf("failed to open daily log: %w", err)
		}
		d.file = f
		d.date = date
	}

	return d.file.Write(p)
}

// Close releases the current file handle
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
