package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/spacetraveling/internal/models"
	"github.com/spf13/afero"
)

// ManifestFile records page metadata next to the rendered files
const ManifestFile = "pages.json"

// ErrInvalidPath is returned for routes that cannot map into the output tree
var ErrInvalidPath = errors.New("invalid page path")

// FilePageRepo writes pages as a static site tree:
// "/" to index.html, "/post/<uid>" to post/<uid>/index.html and any
// route with an extension to the file of that name.
type FilePageRepo struct {
	fs   afero.Fs
	root string

	mu       sync.Mutex
	manifest map[string]models.Page
}

// NewFilePageRepo opens (or starts) a site tree rooted at root
func NewFilePageRepo(fs afero.Fs, root string) (*FilePageRepo, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	r := &FilePageRepo{fs: fs, root: root, manifest: make(map[string]models.Page)}

	data, err := afero.ReadFile(fs, path.Join(root, ManifestFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading manifest: %w", err)
	default:
		var pages []models.Page
		if err := json.Unmarshal(data, &pages); err != nil {
			return nil, fmt.Errorf("decoding manifest: %w", err)
		}
		for _, p := range pages {
			r.manifest[p.Path] = p
		}
	}

	return r, nil
}

// FilePath maps a route to its location relative to the site root
func FilePath(route string) (string, error) {
	if !strings.HasPrefix(route, "/") || strings.Contains(route, "..") || strings.Contains(route, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, route)
	}

	clean := path.Clean(route)
	if clean == "/" {
		return "index.html", nil
	}
	if path.Ext(clean) != "" {
		return strings.TrimPrefix(clean, "/"), nil
	}
	return path.Join(strings.TrimPrefix(clean, "/"), "index.html"), nil
}

// Get returns nil, nil when nothing was saved at route
func (r *FilePageRepo) Get(_ context.Context, route string) (*models.Page, error) {
	r.mu.Lock()
	meta, ok := r.manifest[route]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}

	rel, err := FilePath(route)
	if err != nil {
		return nil, err
	}
	body, err := afero.ReadFile(r.fs, path.Join(r.root, rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	meta.Body = body
	return &meta, nil
}

// Save writes the page body and updates the manifest
func (r *FilePageRepo) Save(_ context.Context, page *models.Page) error {
	rel, err := FilePath(page.Path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.manifest[page.Path]; ok && prev.Prebuilt && !page.Prebuilt {
		return nil
	}

	full := path.Join(r.root, rel)
	if err := r.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", path.Dir(rel), err)
	}
	if err := afero.WriteFile(r.fs, full, page.Body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}

	meta := *page
	meta.Body = nil
	r.manifest[page.Path] = meta
	return r.writeManifest()
}

// ListPaths returns every saved route in lexical order
func (r *FilePageRepo) ListPaths(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.manifest))
	for p := range r.manifest {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// CountByKind returns the number of saved pages per kind
func (r *FilePageRepo) CountByKind(_ context.Context) (map[models.PageKind]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[models.PageKind]int)
	for _, p := range r.manifest {
		counts[p.Kind]++
	}
	return counts, nil
}

// DeleteStale removes the files of post pages saved by other builds along
// with their manifest entries
func (r *FilePageRepo) DeleteStale(_ context.Context, buildID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for route, meta := range r.manifest {
		if meta.Kind != models.PageKindPost || meta.BuildID == buildID {
			continue
		}
		rel, err := FilePath(route)
		if err != nil {
			return removed, err
		}
		full := path.Join(r.root, rel)
		if err := r.fs.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", rel, err)
		}
		// the post directory only holds index.html
		_ = r.fs.Remove(path.Dir(full))
		delete(r.manifest, route)
		removed++
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, r.writeManifest()
}

// caller holds r.mu
func (r *FilePageRepo) writeManifest() error {
	pages := make([]models.Page, 0, len(r.manifest))
	for _, p := range r.manifest {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })

	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(r.fs, path.Join(r.root, ManifestFile), data, 0o644)
}

var _ PageRepository = (*FilePageRepo)(nil)
