package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/jwebster45206/passage-engine/pkg/story"
)

// StoryInfo is a library listing entry.
type StoryInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	File  string `json:"file"`
}

// Library serves story documents from <dataDir>/stories. Parsed stories are cached;
// documents are immutable while the process runs.
type Library struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*story.Story
}

func NewLibrary(dataDir string, logger *slog.Logger) *Library {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &Library{
		dir:    filepath.Join(dataDir, "stories"),
		logger: logger,
		cache:  make(map[string]*story.Story),
	}
}

// Dir returns the directory stories are read from.
func (l *Library) Dir() string {
	return l.dir
}

// files maps story ids to document paths.
func (l *Library) files() (map[string]string, error) {
	found := make(map[string]string)
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.dir {
				return fs.SkipDir
			}
			return nil
		}
		if _, err := story.FormatFromPath(path); err != nil {
			return nil
		}
		id := story.IDFromPath(path)
		if prev, dup := found[id]; dup {
			l.logger.Warn("Duplicate story id, keeping first", "id", id, "kept", prev, "skipped", path)
			return nil
		}
		found[id] = path
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return found, nil
		}
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return found, nil
}

// ListStories returns every loadable story sorted by id. Documents that fail to load
// are logged and skipped.
func (l *Library) ListStories(ctx context.Context) ([]StoryInfo, error) {
	files, err := l.files()
	if err != nil {
		return nil, err
	}

	out := make([]StoryInfo, 0, len(files))
	for id, path := range files {
		s, err := l.GetStory(ctx, id)
		if err != nil {
			l.logger.Warn("Skipping story", "path", path, "error", err)
			continue
		}
		out = append(out, StoryInfo{ID: id, Title: s.Title, File: filepath.Base(path)})
	}
	slices.SortFunc(out, func(a, b StoryInfo) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// GetStory loads the story with the given id, or returns ErrStoryNotFound.
func (l *Library) GetStory(ctx context.Context, id string) (*story.Story, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("%w: %q", ErrStoryNotFound, id)
	}

	l.mu.RLock()
	s, ok := l.cache[id]
	l.mu.RUnlock()
	if ok {
		return s, nil
	}

	files, err := l.files()
	if err != nil {
		return nil, err
	}
	path, ok := files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStoryNotFound, id)
	}

	l.logger.Debug("Loading story", "id", id, "path", path)
	s, err = story.LoadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.cache[id]; ok {
		return cached, nil
	}
	l.cache[id] = s
	return s, nil
}

// LoadAll parses and validates every document in the library, returning all failures
// joined. An empty library is an error.
func (l *Library) LoadAll(ctx context.Context) error {
	files, err := l.files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no story documents in %s", l.dir)
	}

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(files)) {
		if _, err := l.GetStory(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
