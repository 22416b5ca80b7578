package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var jobNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the whole document: job-name shape and uniqueness, AOI
// file existence, output-directory writability, and each sub-config's own
// validation.
func (c *SchedulerConfig) Validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("config: no jobs defined")
	}
	if c.MaxConcurrentJobs < 1 {
		return fmt.Errorf("config: max_concurrent_jobs must be >= 1")
	}
	if c.JobMaxInstances < 1 {
		return fmt.Errorf("config: job_max_instances must be >= 1")
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i := range c.Jobs {
		j := &c.Jobs[i]
		if j.Name == "" {
			return fmt.Errorf("config: job %d has no name", i)
		}
		if !jobNamePattern.MatchString(j.Name) {
			return fmt.Errorf("config: job name %q may only contain letters, digits, _ and -", j.Name)
		}
		if seen[j.Name] {
			return fmt.Errorf("config: duplicate job name %q", j.Name)
		}
		seen[j.Name] = true

		if err := j.validate(); err != nil {
			return fmt.Errorf("job %q: %w", j.Name, err)
		}
	}
	return nil
}

func (j *CollectionJobConfig) validate() error {
	if j.AOIPath == "" {
		return fmt.Errorf("aoi_path is required")
	}
	if !strings.EqualFold(filepath.Ext(j.AOIPath), ".geojson") {
		return fmt.Errorf("aoi_path must have a .geojson suffix, got %q", j.AOIPath)
	}
	if _, err := os.Stat(j.AOIPath); err != nil {
		return fmt.Errorf("aoi_path %q: %w", j.AOIPath, err)
	}

	if j.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if err := checkWritable(j.OutputDir); err != nil {
		return fmt.Errorf("output_dir %q: %w", j.OutputDir, err)
	}

	if err := j.Schedule.Validate(); err != nil {
		return err
	}
	if err := j.DateRange.Validate(); err != nil {
		return err
	}
	if err := j.Filters.Validate(); err != nil {
		return err
	}
	if err := j.AutoSelect.Validate(); err != nil {
		return err
	}
	return nil
}

// checkWritable ensures dir exists (creating it if necessary) and can be
// written to before the scheduler ever starts a job against it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".write_probe")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}
