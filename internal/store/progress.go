package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	progressFile = "progress.json"
	progressKey  = "name"

	// ResetProgress as WHERETOSTART discards any saved progress.
	ResetProgress = "RESET"
)

type progressRecord struct {
	Batch string `json:"batch"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Progress remembers which dataset a batch run reached so an interrupted run
// can resume from that dataset with the same batch id.
type Progress struct {
	path       string
	batch      string
	resumeFrom string
}

// OpenProgress prepares the run folder and loads saved progress.
// wheretostart is either empty, "RESET" or "name=<dataset>".
func OpenProgress(folder, wheretostart string) (*Progress, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create run folder: %w", err)
	}

	p := &Progress{path: filepath.Join(folder, progressFile)}

	if strings.EqualFold(wheretostart, ResetProgress) {
		log.Printf("INFO: WHERETOSTART=%s, ignoring saved progress", ResetProgress)
		if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		p.batch = uuid.NewString()
		return p, nil
	}

	saved, err := p.load()
	if err != nil {
		return nil, err
	}
	if saved != nil {
		p.batch = saved.Batch
		p.resumeFrom = saved.Value
	}

	if wheretostart != "" {
		key, value, ok := strings.Cut(wheretostart, "=")
		if !ok || key != progressKey || value == "" {
			return nil, fmt.Errorf("invalid WHERETOSTART %q, expected %s=<dataset>", wheretostart, progressKey)
		}
		p.resumeFrom = value
	}

	if p.batch == "" {
		p.batch = uuid.NewString()
	}
	if p.resumeFrom != "" {
		log.Printf("INFO: resuming batch %s from %s", p.batch, p.resumeFrom)
	}

	return p, nil
}

func (p *Progress) load() (*progressRecord, error) {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}

	var rec progressRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if rec.Key != progressKey {
		return nil, fmt.Errorf("progress file keyed by %q, expected %q", rec.Key, progressKey)
	}
	return &rec, nil
}

// Batch returns the id grouping every catalog write of this run.
func (p *Progress) Batch() string { return p.batch }

// Remaining returns names starting at the resume point. When the resume
// point is unknown all names are returned.
func (p *Progress) Remaining(names []string) []string {
	if p.resumeFrom == "" {
		return names
	}
	for i, name := range names {
		if name == p.resumeFrom {
			return names[i:]
		}
	}
	log.Printf("INFO: resume point %s not among %d datasets, starting from the beginning", p.resumeFrom, len(names))
	return names
}

// Mark records name as the dataset currently being processed.
func (p *Progress) Mark(name string) error {
	raw, err := json.Marshal(progressRecord{Batch: p.batch, Key: progressKey, Value: name})
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.path, raw, 0o644); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	return nil
}

// Done clears saved progress after a complete run.
func (p *Progress) Done() error {
	p.resumeFrom = ""
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove progress: %w", err)
	}
	return nil
}
