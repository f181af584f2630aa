package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/couchcryptid/storm-data-evacuation/internal/domain"
)

// RouteStore writes evacuation routes as a GeoJSON FeatureCollection of
// LineStrings, one per city, in the order given.
type RouteStore struct {
	path string
}

// NewRouteStore creates a store writing to path.
func NewRouteStore(path string) *RouteStore {
	return &RouteStore{path: path}
}

func (s *RouteStore) Name() string { return "file" }

// PersistRoutes atomically replaces the output file. Only the city and the
// geometry are written, so unchanged inputs produce identical bytes.
func (s *RouteStore) PersistRoutes(_ context.Context, routes []domain.Route) error {
	fc := newCollection()
	for _, r := range routes {
		if len(r.Coordinates) < 2 {
			return fmt.Errorf("route for %q has %d points, want at least 2", r.City, len(r.Coordinates))
		}
		fc.Append(r.Feature())
	}
	return writeCollection(s.path, fc)
}

// ClearRoutes removes the output file left by a previous run.
func (s *RouteStore) ClearRoutes(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}
