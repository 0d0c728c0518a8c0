package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/railfield/config"
)

// csvFile appends gocsv rows, writing the header with the first row only.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager writes run output: stats.csv, perf.csv, quality.csv and a
// config snapshot.
type OutputManager struct {
	dir     string
	stats   *csvFile
	perf    *csvFile
	quality *csvFile
}

// NewOutputManager creates the output directory and files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, target := range []struct {
		name string
		dst  **csvFile
	}{
		{"stats.csv", &om.stats},
		{"perf.csv", &om.perf},
		{"quality.csv", &om.quality},
	} {
		f, err := os.Create(filepath.Join(dir, target.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", target.name, err)
		}
		*target.dst = &csvFile{f: f}
	}
	return om, nil
}

// WriteConfig saves the configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats appends a window to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.stats.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf appends a perf window to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, now float64) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(now)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteQuality appends a transition to quality.csv.
func (om *OutputManager) WriteQuality(e QualityEvent) error {
	if om == nil {
		return nil
	}
	if err := om.quality.write([]QualityEvent{e}); err != nil {
		return fmt.Errorf("writing quality event: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, c := range []*csvFile{om.stats, om.perf, om.quality} {
		if c == nil || c.f == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
