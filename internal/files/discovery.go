package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes a discovered workbook
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery finds workbooks under an input directory
type Discovery struct {
	root string
}

// NewDiscovery creates a discovery rooted at root
func NewDiscovery(root string) *Discovery {
	return &Discovery{root: root}
}

// Root returns the input directory
func (d *Discovery) Root() string {
	return d.root
}

// IsWorkbook reports whether name looks like a workbook excelize can open.
// Office lock files ("~$...") are not workbooks.
func IsWorkbook(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// FindWorkbooks lists the workbooks directly under the root, newest first.
// A missing root yields an empty list.
func (d *Discovery) FindWorkbooks() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", d.root, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsWorkbook(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(d.root, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// Latest returns the most recently modified workbook
func (d *Discovery) Latest() (FileInfo, bool, error) {
	files, err := d.FindWorkbooks()
	if err != nil || len(files) == 0 {
		return FileInfo{}, false, err
	}
	return files[0], true, nil
}

// Resolve maps a workbook reference to a path. Absolute paths pass through
// cleaned; relative ones are taken inside the root and may not leave it.
func (d *Discovery) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	p := filepath.Join(d.root, name)
	rel, err := filepath.Rel(d.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s escapes the input directory", name)
	}
	return p, nil
}
