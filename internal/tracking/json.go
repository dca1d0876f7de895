package tracking

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// JSONTracker stores projects in a single JSON file. Writes go through a
// temp file and rename so a crash never leaves a half-written registry.
type JSONTracker struct {
	mu   sync.Mutex
	path string
}

// NewJSONTracker uses the registry file at path, creating parent
// directories as needed.
func NewJSONTracker(path string) (*JSONTracker, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrap(err, "tracking: create registry directory")
	}
	return &JSONTracker{path: path}, nil
}

func (t *JSONTracker) Create(ctx context.Context, p Project) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	projects, err := t.load()
	if err != nil {
		return err
	}
	for _, existing := range projects {
		if existing.ID == p.ID {
			return eris.Errorf("tracking: project %s already exists", p.ID)
		}
	}
	return t.save(append(projects, p))
}

func (t *JSONTracker) Update(ctx context.Context, p Project) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	projects, err := t.load()
	if err != nil {
		return err
	}
	for i, existing := range projects {
		if existing.ID == p.ID {
			projects[i] = p
			return t.save(projects)
		}
	}
	return eris.Errorf("tracking: project not found: %s", p.ID)
}

func (t *JSONTracker) Get(ctx context.Context, id string) (*Project, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	projects, err := t.load()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, eris.Errorf("tracking: project not found: %s", id)
}

func (t *JSONTracker) List(ctx context.Context, limit int) ([]Project, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	projects, err := t.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	if limit > 0 && len(projects) > limit {
		projects = projects[:limit]
	}
	return projects, nil
}

func (t *JSONTracker) Close() error { return nil }

func (t *JSONTracker) load() ([]Project, error) {
	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "tracking: read registry")
	}
	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, eris.Wrap(err, "tracking: parse registry")
	}
	return projects, nil
}

func (t *JSONTracker) save(projects []Project) error {
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return eris.Wrap(err, "tracking: marshal registry")
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "tracking: write registry")
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return eris.Wrap(err, "tracking: replace registry")
	}
	return nil
}
