package payloads

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wvscan/wvscan/pkg/finding"
	"github.com/wvscan/wvscan/pkg/jsonutil"
)

// Loader reads payload JSON files from a directory tree. The layout is one
// subdirectory per category (xss/, sqli/, header/), each holding any number
// of .json files containing arrays of Payload objects. A payload without an
// explicit category inherits the directory name.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// LoadAll loads every payload file under the base directory.
func (l *Loader) LoadAll() ([]Payload, error) {
	var all []Payload

	err := filepath.Walk(l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}
		loaded, err := l.loadFile(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		all = append(all, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// LoadCategory loads payloads from one category subdirectory.
func (l *Loader) LoadCategory(category finding.Category) ([]Payload, error) {
	categoryDir := filepath.Join(l.baseDir, string(category))

	// Prevent path traversal via crafted category names.
	absCategory, err := filepath.Abs(categoryDir)
	if err != nil {
		return nil, fmt.Errorf("resolving category path: %w", err)
	}
	absBase, err := filepath.Abs(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base path: %w", err)
	}
	if !strings.HasPrefix(absCategory, absBase+string(filepath.Separator)) {
		return nil, fmt.Errorf("category %q escapes payload directory", category)
	}

	entries, err := os.ReadDir(categoryDir)
	if err != nil {
		return nil, fmt.Errorf("reading category %s: %w", category, err)
	}

	var list []Payload
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		loaded, err := l.loadFile(filepath.Join(categoryDir, entry.Name()))
		if err != nil {
			return nil, err
		}
		list = append(list, loaded...)
	}
	return list, nil
}

func (l *Loader) loadFile(path string) ([]Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []Payload
	if err := jsonutil.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Payloads inherit the category from their directory when unset.
	dirCategory := finding.Category(filepath.Base(filepath.Dir(path)))
	for i := range list {
		if list[i].Category == "" && dirCategory.IsValid() {
			list[i].Category = dirCategory
		}
	}
	return list, nil
}
