package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"litqa/internal/model"
)

const (
	historyFileName        = "qa_history.jsonl"
	DefaultHistoryCapacity = 100
)

// FileHistoryRepository stores each user's QA log as append-only JSON lines.
// Once a log holds twice the capacity it is rewritten with only the newest
// capacity records, so readers always see at most capacity entries.
type FileHistoryRepository struct {
	baseDir  string
	capacity int

	mu   sync.Mutex
	logs map[uint]*userLog
}

type userLog struct {
	mu     sync.Mutex
	loaded bool
	lines  int
	lastID uint
}

func NewFileHistoryRepository(baseDir string, capacity int) *FileHistoryRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &FileHistoryRepository{
		baseDir:  baseDir,
		capacity: capacity,
		logs:     make(map[uint]*userLog),
	}
}

func (r *FileHistoryRepository) Capacity() int {
	return r.capacity
}

func (r *FileHistoryRepository) historyPath(userID uint) string {
	return filepath.Join(r.baseDir, strconv.FormatUint(uint64(userID), 10), historyFileName)
}

func (r *FileHistoryRepository) userLog(userID uint) *userLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[userID]
	if !ok {
		l = &userLog{}
		r.logs[userID] = l
	}
	return l
}

// Append adds one record to the user's log, assigning ID and CreatedAt when unset.
func (r *FileHistoryRepository) Append(ctx context.Context, record *model.QARecord) error {
	if record == nil {
		return errors.New("append history failed: nil record")
	}
	l := r.userLog(record.UserID)
	l.mu.Lock()
	defer l.mu.Unlock()

	path := r.historyPath(record.UserID)
	if !l.loaded {
		records, lines, err := readHistoryFile(path)
		if err != nil {
			return fmt.Errorf("load history failed: %w", err)
		}
		l.lines = lines
		if n := len(records); n > 0 {
			l.lastID = records[n-1].ID
		}
		l.loaded = true
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.ID == 0 {
		record.ID = l.lastID + 1
	}
	if record.References == nil {
		record.References = []string{}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode history record failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history dir failed: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history failed: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append history failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close history failed: %w", err)
	}
	l.lines++
	l.lastID = record.ID

	if l.lines >= 2*r.capacity {
		if err := r.compact(path, l); err != nil {
			return fmt.Errorf("compact history failed: %w", err)
		}
	}
	return nil
}

func (r *FileHistoryRepository) compact(path string, l *userLog) error {
	records, _, err := readHistoryFile(path)
	if err != nil {
		return err
	}
	records = newest(records, r.capacity)

	var buf bytes.Buffer
	for i := range records {
		line, err := json.Marshal(&records[i])
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return err
	}
	l.lines = len(records)
	return nil
}

// List returns at most capacity records, oldest first.
func (r *FileHistoryRepository) List(ctx context.Context, userID uint) ([]model.QARecord, error) {
	l := r.userLog(userID)
	l.mu.Lock()
	defer l.mu.Unlock()

	records, _, err := readHistoryFile(r.historyPath(userID))
	if err != nil {
		return nil, fmt.Errorf("list history failed: %w", err)
	}
	return newest(records, r.capacity), nil
}

func newest(records []model.QARecord, capacity int) []model.QARecord {
	if len(records) > capacity {
		records = records[len(records)-capacity:]
	}
	return records
}

// readHistoryFile decodes every well-formed line and reports the physical line
// count. A torn trailing line from an interrupted write is skipped.
func readHistoryFile(path string) ([]model.QARecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.QARecord{}, 0, nil
		}
		return nil, 0, err
	}
	defer f.Close()

	records := make([]model.QARecord, 0)
	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		lines++
		var rec model.QARecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.References == nil {
			rec.References = []string{}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}
	return records, lines, nil
}
