package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ArticlesHarvester/internal/domain"
	"ArticlesHarvester/internal/ports"
)

// Directory names under the output root.
const (
	RawDir     = "raw"
	FailedDir  = "failed"
	HTMLDir    = "html"
	ArchiveDir = "old"
	runsFile   = "runs.jsonl"
)

const archiveLayout = "20060102_150405"

// FileStore writes records, snapshots and run history below one directory.
type FileStore struct {
	root string
	mu   sync.Mutex
}

var (
	_ ports.RecordStore    = (*FileStore)(nil)
	_ ports.SnapshotWriter = (*FileStore)(nil)
	_ ports.RunRecorder    = (*FileStore)(nil)
	_ ports.Archiver       = (*FileStore)(nil)
)

// NewFileStore creates root if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: output dir is empty", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Store writes a succeeded record to raw/ and a failed one to failed/.
func (s *FileStore) Store(ctx context.Context, rec domain.EnrichedRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := RawDir
	if !rec.Succeeded {
		dir = FailedDir
	}
	body, err := json.MarshalIndent(newDocument(rec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record %s: %w", rec.Ref.Link, err)
	}
	return s.write(dir, Slug(rec.Ref.Link)+".json", body)
}

// SaveSnapshot keeps the raw detail page under html/.
func (s *FileStore) SaveSnapshot(ctx context.Context, ref domain.ArticleRef, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.write(HTMLDir, Slug(ref.Link)+".html", raw)
}

// SaveRun appends the summary to runs.jsonl.
func (s *FileStore) SaveRun(_ context.Context, summary domain.Summary) error {
	line, err := json.Marshal(runDocument(summary))
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.root, runsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("append run log: %w", err)
	}
	return f.Close()
}

// Runs reads the run history, oldest first.
func (s *FileStore) Runs() ([]domain.Summary, error) {
	f, err := os.Open(filepath.Join(s.root, runsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	var runs []domain.Summary
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var doc runDoc
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			return nil, fmt.Errorf("decode run log: %w", err)
		}
		runs = append(runs, doc.summary())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	return runs, nil
}

// Archive moves the previous run's raw/, failed/ and html/ directories to old/<timestamp>/.
// It returns the archive path and the number of files moved; nothing is created when there is nothing to move.
func (s *FileStore) Archive(now time.Time) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dest := filepath.Join(s.root, ArchiveDir, now.Format(archiveLayout))
	moved := 0
	for _, dir := range []string{RawDir, FailedDir, HTMLDir} {
		src := filepath.Join(s.root, dir)
		n, err := countFiles(src)
		if err != nil {
			return "", moved, err
		}
		if n == 0 {
			continue
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return "", moved, fmt.Errorf("create archive dir: %w", err)
		}
		if err := os.Rename(src, filepath.Join(dest, dir)); err != nil {
			return "", moved, fmt.Errorf("archive %s: %w", dir, err)
		}
		moved += n
	}
	if moved == 0 {
		return "", 0, nil
	}
	return dest, moved, nil
}

func (s *FileStore) write(dir, name string, body []byte) (string, error) {
	full := filepath.Join(s.root, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(full, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ReadRecord loads a record written by Store.
func ReadRecord(path string) (domain.EnrichedRecord, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return domain.EnrichedRecord{}, fmt.Errorf("read record: %w", err)
	}
	var doc recordDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.EnrichedRecord{}, fmt.Errorf("decode record %s: %w", path, err)
	}
	return doc.record(), nil
}

func countFiles(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	return n, nil
}

type runDoc struct {
	RunID         string    `json:"run_id"`
	Source        string    `json:"source"`
	Cutoff        string    `json:"cutoff"`
	CutoffDays    int       `json:"cutoff_days"`
	Discovered    int       `json:"discovered"`
	Total         int       `json:"total"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	StoreFailures int       `json:"store_failures"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

func runDocument(s domain.Summary) runDoc {
	return runDoc{
		RunID:         s.RunID,
		Source:        s.Source,
		Cutoff:        s.Cutoff.String(),
		CutoffDays:    s.Cutoff.Days,
		Discovered:    s.Discovered,
		Total:         s.Total,
		Succeeded:     s.Succeeded,
		Failed:        s.Failed,
		StoreFailures: s.StoreFailures,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
	}
}

func (d runDoc) summary() domain.Summary {
	cutoff := domain.Cutoff{Days: d.CutoffDays}
	if t, err := time.Parse(domain.DateLayout, d.Cutoff); err == nil {
		cutoff.Day = t
	}
	return domain.Summary{
		RunID:         d.RunID,
		Source:        d.Source,
		Cutoff:        cutoff,
		Discovered:    d.Discovered,
		Total:         d.Total,
		Succeeded:     d.Succeeded,
		Failed:        d.Failed,
		StoreFailures: d.StoreFailures,
		StartedAt:     d.StartedAt,
		FinishedAt:    d.FinishedAt,
	}
}
