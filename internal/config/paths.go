package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the resolved directory layout. It is the single source of
// truth for every file the application reads or writes.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	FiguresDir string
	LogsDir    string

	// Well-known files inside the layout.
	CombinedCSV string
}

// ResolvePaths turns the configured directory names into absolute paths
// under the base directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	base, err := filepath.Abs(c.Paths.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}

	p := &Paths{
		BaseDir:    base,
		DataDir:    resolve(c.Paths.DataDir),
		ReportsDir: resolve(c.Paths.ReportsDir),
		FiguresDir: resolve(c.Paths.FiguresDir),
		LogsDir:    resolve(c.Paths.LogsDir),
	}
	p.CombinedCSV = filepath.Join(p.ReportsDir, "epi_combined_data.csv")
	return p, nil
}

// EnsureDirs creates the writable directories of the layout.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.FiguresDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
