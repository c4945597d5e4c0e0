package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

var spreadsheetExts = map[string]bool{".csv": true, ".xlsx": true, ".xlsm": true}

// IsSpreadsheet reports whether name has an importable extension.
// Excel's "~$" lock files are not spreadsheets.
func IsSpreadsheet(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, "~$") && spreadsheetExts[strings.ToLower(filepath.Ext(base))]
}

// FindSpreadsheets lists the importable files directly inside dir, oldest
// first so that a batch import lets newer files win.
func FindSpreadsheets(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !IsSpreadsheet(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// Expand replaces every directory in paths with the spreadsheets it
// holds. Plain files are kept in place whatever their extension.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		found, err := FindSpreadsheets(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			out = append(out, f.Path)
		}
	}
	return out, nil
}
