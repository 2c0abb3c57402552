package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rollfed/gangrun/pkg/errors"
	"github.com/rollfed/gangrun/pkg/plan"
)

// FileStore persists runs and layouts as JSON files on disk.
//
// Layout on disk:
//
//	<dir>/runs/<order>.json     all run records of one order
//	<dir>/layouts/<order>.json  the order's saved plan document
//
// Order ids are percent-encoded in file names, so any id the validators
// accept maps to exactly one file.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
// An empty dir places the store under the user's home directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".gangrun", "store")
	}
	for _, sub := range []string{"runs", "layouts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) runsPath(orderID string) string {
	return filepath.Join(s.dir, "runs", url.PathEscape(orderID)+".json")
}

func (s *FileStore) layoutPath(orderID string) string {
	return filepath.Join(s.dir, "layouts", url.PathEscape(orderID)+".json")
}

func (s *FileStore) readRuns(orderID string) ([]RunRecord, error) {
	data, err := os.ReadFile(s.runsPath(orderID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read runs for %s: %w", orderID, err)
	}
	var runs []RunRecord
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("decode runs for %s: %w", orderID, err)
	}
	return runs, nil
}

func (s *FileStore) writeRuns(orderID string, runs []RunRecord) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode runs for %s: %w", orderID, err)
	}
	return os.WriteFile(s.runsPath(orderID), data, 0o644)
}

// CreateRuns replaces the order's run set with the given records.
func (s *FileStore) CreateRuns(ctx context.Context, orderID string, runs []RunRecord) error {
	now := time.Now().UTC()
	out := make([]RunRecord, len(runs))
	for i, r := range runs {
		r.OrderID = orderID
		r.CreatedAt = now
		r.UpdatedAt = now
		out[i] = r
	}
	return s.writeRuns(orderID, out)
}

// findRun locates a run across all order files.
func (s *FileStore) findRun(id string) (orderID string, runs []RunRecord, index int, err error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "runs", "*.json"))
	if err != nil {
		return "", nil, 0, err
	}
	for _, p := range paths {
		name := filepath.Base(p)
		order, err := url.PathUnescape(name[:len(name)-len(".json")])
		if err != nil {
			continue
		}
		rs, err := s.readRuns(order)
		if err != nil {
			continue
		}
		for i, r := range rs {
			if r.ID == id {
				return order, rs, i, nil
			}
		}
	}
	return "", nil, 0, errors.New(errors.ErrCodeRunNotFound, "run %q not found", id)
}

// GetRun returns the run with the given id.
func (s *FileStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	_, runs, i, err := s.findRun(id)
	if err != nil {
		return nil, err
	}
	r := runs[i]
	return &r, nil
}

// ListRuns returns the order's runs sorted by run number.
func (s *FileStore) ListRuns(ctx context.Context, orderID string) ([]RunRecord, error) {
	runs, err := s.readRuns(orderID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].RunNumber < runs[j].RunNumber })
	return runs, nil
}

func (s *FileStore) mutateRun(id string, fn func(*RunRecord)) error {
	orderID, runs, i, err := s.findRun(id)
	if err != nil {
		return err
	}
	fn(&runs[i])
	runs[i].UpdatedAt = time.Now().UTC()
	return s.writeRuns(orderID, runs)
}

// UpdateRunStatus moves a run to the given lifecycle state.
func (s *FileStore) UpdateRunStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown run status %q", status)
	}
	return s.mutateRun(id, func(r *RunRecord) { r.Status = status })
}

// AnnotateRunError records a failure note on the run; empty clears it.
func (s *FileStore) AnnotateRunError(ctx context.Context, id string, msg string) error {
	return s.mutateRun(id, func(r *RunRecord) { r.Error = msg })
}

// AttachArtifacts replaces the run's artifact URL list.
func (s *FileStore) AttachArtifacts(ctx context.Context, id string, urls []string) error {
	return s.mutateRun(id, func(r *RunRecord) {
		r.Artifacts = append([]string(nil), urls...)
	})
}

// SaveLayout stores the order's chosen plan document.
func (s *FileStore) SaveLayout(ctx context.Context, orderID string, doc *plan.PlanDocument) error {
	data, err := encodeLayout(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(s.layoutPath(orderID), data, 0o644)
}

// LoadLayout returns the order's saved plan document.
func (s *FileStore) LoadLayout(ctx context.Context, orderID string) (*plan.PlanDocument, error) {
	data, err := os.ReadFile(s.layoutPath(orderID))
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeLayoutNotFound, "no saved layout for order %q", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("read layout for %s: %w", orderID, err)
	}
	return decodeLayout(data)
}

// ClearLayout removes the order's saved plan document.
func (s *FileStore) ClearLayout(ctx context.Context, orderID string) error {
	err := os.Remove(s.layoutPath(orderID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close(ctx context.Context) error { return nil }
