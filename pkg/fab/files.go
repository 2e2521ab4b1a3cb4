package fab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrDuplicateOutput is returned when the same file was written more than
// once during one run.
var ErrDuplicateOutput = errors.New("file written multiple times")

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WrittenFiles counts how often each output path was written.
type WrittenFiles struct {
	counts map[string]int
}

// Add records written paths.
func (w *WrittenFiles) Add(paths ...string) {
	if w.counts == nil {
		w.counts = map[string]int{}
	}
	for _, p := range paths {
		w.counts[filepath.Clean(p)]++
	}
}

// Count returns how often path was written.
func (w *WrittenFiles) Count(path string) int {
	return w.counts[filepath.Clean(path)]
}

// Duplicates returns the paths written more than once, sorted.
func (w *WrittenFiles) Duplicates() []string {
	var out []string
	for p, n := range w.counts {
		if n > 1 {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Err returns ErrDuplicateOutput listing all duplicates, or nil.
func (w *WrittenFiles) Err() error {
	d := w.Duplicates()
	if len(d) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDuplicateOutput, strings.Join(d, ", "))
}
