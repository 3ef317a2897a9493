package universe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source loads the reference file once and keeps it until Reload or
// Invalidate is called.
type Source struct {
	Path   string
	Logger *zap.Logger

	mu       sync.Mutex
	dir      *Directory
	loadedAt time.Time
	load     func(path string) (*Directory, error)
}

func NewSource(path string, log *zap.Logger) *Source {
	return &Source{Path: path, Logger: log, load: LoadCompaniesCSV}
}

// NewStaticSource serves a fixed directory; Reload keeps it.
func NewStaticSource(dir *Directory) *Source {
	return &Source{
		dir:      dir,
		loadedAt: time.Now().UTC(),
		load:     func(string) (*Directory, error) { return dir, nil },
	}
}

func (s *Source) Directory(ctx context.Context) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != nil {
		return s.dir, nil
	}
	return s.loadLocked()
}

func (s *Source) Reload(ctx context.Context) (*Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Source) Invalidate() {
	s.mu.Lock()
	s.dir = nil
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Source) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

func (s *Source) loadLocked() (*Directory, error) {
	load := s.load
	if load == nil {
		load = LoadCompaniesCSV
	}
	dir, err := load(s.Path)
	if err != nil {
		return nil, fmt.Errorf("load companies %s: %w", s.Path, err)
	}
	s.dir = dir
	s.loadedAt = time.Now().UTC()
	if s.Logger != nil {
		s.Logger.Info("company directory loaded", zap.String("path", s.Path), zap.Int("companies", dir.Len()))
	}
	return dir, nil
}
