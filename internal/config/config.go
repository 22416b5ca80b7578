// Package config loads and validates the YAML job-configuration file for
// the scheduler daemon.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig is the top-level document.
type SchedulerConfig struct {
	MaxConcurrentJobs int                   `yaml:"max_concurrent_jobs"`
	JobCoalesce       bool                  `yaml:"job_coalesce"`
	JobMaxInstances   int                   `yaml:"job_max_instances"`
	Jobs              []CollectionJobConfig `yaml:"jobs"`
}

// Default returns a SchedulerConfig with the top-level defaults and no
// jobs.
func Default() *SchedulerConfig {
	return &SchedulerConfig{
		MaxConcurrentJobs: 1,
		JobCoalesce:       true,
		JobMaxInstances:   1,
	}
}

// CollectionJobConfig is one job entry.
type CollectionJobConfig struct {
	Name       string           `yaml:"name"`
	AOIPath    string           `yaml:"aoi_path"`
	OutputDir  string           `yaml:"output_dir"`
	Enabled    *bool            `yaml:"enabled"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	DateRange  DateRangeConfig  `yaml:"date_range"`
	Filters    FilterConfig     `yaml:"filters"`
	AutoSelect AutoSelectConfig `yaml:"auto_select"`
}

// EnabledOrDefault returns Enabled, defaulting to true when unset.
func (j CollectionJobConfig) EnabledOrDefault() bool {
	if j.Enabled == nil {
		return true
	}
	return *j.Enabled
}

// Load reads and validates a SchedulerConfig from path.
func Load(path string) (*SchedulerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.MaxConcurrentJobs < 1 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.JobMaxInstances < 1 {
		cfg.JobMaxInstances = 1
	}
	for i := range cfg.Jobs {
		applyJobDefaults(&cfg.Jobs[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyJobDefaults(j *CollectionJobConfig) {
	if j.Filters.MaxCloudCover == 0 {
		j.Filters.MaxCloudCover = 100
	}
	if j.Filters.ProductLevel == "" {
		j.Filters.ProductLevel = "L2A"
	}
	if j.AutoSelect.MaxProducts == 0 {
		j.AutoSelect.MaxProducts = 5
	}
	if j.AutoSelect.QualityThreshold == 0 {
		j.AutoSelect.QualityThreshold = 0.7
	}
	if j.AutoSelect.MinCoverageFraction == 0 {
		j.AutoSelect.MinCoverageFraction = 0.99
	}
	if j.AutoSelect.SolverTimeoutSeconds == 0 {
		j.AutoSelect.SolverTimeoutSeconds = 300
	}
	if j.AutoSelect.Strategy == "" {
		j.AutoSelect.Strategy = "best_n"
	}
	if j.AutoSelect.AOICoverageWeight == 0 && j.AutoSelect.CloudCoverWeight == 0 && j.AutoSelect.RecencyWeight == 0 {
		j.AutoSelect.AOICoverageWeight = 0.4
		j.AutoSelect.CloudCoverWeight = 0.4
		j.AutoSelect.RecencyWeight = 0.2
	}
	if j.AutoSelect.CoverageCloudWeight == 0 && j.AutoSelect.CoverageQualityWeight == 0 {
		j.AutoSelect.CoverageCloudWeight = 0.3
		j.AutoSelect.CoverageQualityWeight = 0.7
	}
}
