package browse

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/amishk599/jobmatch/internal/rank"
)

// Discover expands paths into results files. Directories contribute every
// .csv directly inside them; a file that cannot be parsed as results is
// skipped. Missing paths are an error.
func Discover(paths []string) ([]File, error) {
	var candidates []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("results path %s: %w", p, err)
		}
		if !info.IsDir() {
			candidates = append(candidates, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, err
		}
		slices.Sort(matches)
		candidates = append(candidates, matches...)
	}

	var files []File
	seen := make(map[string]bool)
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err == nil {
			if seen[abs] {
				continue
			}
			seen[abs] = true
		}
		if !strings.EqualFold(filepath.Ext(c), ".csv") {
			continue
		}
		entries, err := rank.Load(c)
		if err != nil {
			continue
		}
		files = append(files, File{Path: c, Jobs: len(entries)})
	}
	return files, nil
}
