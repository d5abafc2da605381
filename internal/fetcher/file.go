package fetcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultPageFile is the file name used for a saved results page.
const DefaultPageFile = "inspection_page.html"

// pageAlias is shorthand for DefaultPageFile in the working directory.
const pageAlias = "file"

// ResolvePagePath maps the "file" alias to DefaultPageFile.
func ResolvePagePath(path string) string {
	if path == pageAlias {
		return DefaultPageFile
	}
	return path
}

// LoadFile reads a previously saved results page.
func LoadFile(path string) ([]byte, error) {
	path = ResolvePagePath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: load %s", path)
	}
	return data, nil
}

// SaveFile writes content to dir/name, creating dir if needed, and returns
// the written path. An empty name means DefaultPageFile.
func SaveFile(dir, name string, content []byte) (string, error) {
	if name == "" {
		name = DefaultPageFile
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", eris.Wrapf(err, "fetcher: create %s", dir)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", eris.Wrapf(err, "fetcher: write %s", path)
	}
	return path, nil
}

// TimestampedName returns a page file name stamped with t in UTC.
func TimestampedName(t time.Time) string {
	return "results-" + t.UTC().Format("20060102T150405Z") + ".html"
}
