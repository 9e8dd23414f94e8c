// Package prefs persists analysis options between interactive sessions as a
// JSON file in the working directory, so a recruiter re-running the tool on
// the same project does not have to re-enter everything.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the per-directory preferences file.
const FileName = ".git-recruiting-options.json"

// Options are the saved analysis settings. Zero values mean "unset"; dates
// are kept as YYYY-MM-DD strings exactly as the user typed them.
type Options struct {
	Repo      string `json:"repo,omitempty"`
	Subdir    string `json:"subdir,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Since     string `json:"since,omitempty"`
	Until     string `json:"until,omitempty"`
	Output    string `json:"output,omitempty"`
	CacheDir  string `json:"cache_dir,omitempty"`
	LinkedIn  bool   `json:"linkedin"`
	Format    string `json:"format,omitempty"`
	LineStats bool   `json:"line_stats"`
}

// DefaultOptions returns the options used when no preferences file exists.
func DefaultOptions() Options {
	return Options{
		Branch:   "HEAD",
		Output:   "contributors.csv",
		Format:   "numbers",
		LinkedIn: true,
	}
}

// Path returns the preferences file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Exists reports whether a preferences file is present in dir.
func Exists(dir string) bool {
	info, err := os.Stat(Path(dir))
	return err == nil && !info.IsDir()
}

// Load reads the preferences file from dir. A missing file is not an error;
// defaults are returned instead.
func Load(dir string) (Options, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultOptions(), nil
		}
		return Options{}, fmt.Errorf("failed to read preferences file %s: %w", Path(dir), err)
	}

	opts := DefaultOptions()
	if err := json.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("failed to parse preferences file %s: %w", Path(dir), err)
	}
	return opts, nil
}

// Save writes the preferences file to dir, replacing any existing one.
func Save(dir string, opts Options) error {
	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(Path(dir), data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences file %s: %w", Path(dir), err)
	}
	return nil
}
