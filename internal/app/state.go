package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const currentResumeFile = "current_resume"

// ErrNoResume is returned when a command needs a resume and none is selected.
var ErrNoResume = errors.New("no resume selected: run 'rgit resume use ID'")

// readCurrentResume returns the selected resume id, or "" if none is selected.
func readCurrentResume(baseDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, currentResumeFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading current resume: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// writeCurrentResume selects id; an empty id clears the selection.
func writeCurrentResume(baseDir, id string) error {
	path := filepath.Join(baseDir, currentResumeFile)
	if id == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clearing current resume: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return fmt.Errorf("creating base directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0644); err != nil {
		return fmt.Errorf("writing current resume: %w", err)
	}
	return nil
}
