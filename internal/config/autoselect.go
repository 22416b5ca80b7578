package config

import "fmt"

const weightTolerance = 0.01

// AutoSelectConfig is a job's auto_select block: strategy choice, the
// quality-scorer weights, and the coverage-solver knobs.
type AutoSelectConfig struct {
	Strategy              string  `yaml:"strategy"`
	MaxProducts           int     `yaml:"max_products"`
	QualityThreshold      float64 `yaml:"quality_threshold"`
	AOICoverageWeight     float64 `yaml:"aoi_coverage_weight"`
	CloudCoverWeight      float64 `yaml:"cloud_cover_weight"`
	RecencyWeight         float64 `yaml:"recency_weight"`
	MinCoverageFraction   float64 `yaml:"min_coverage_fraction"`
	GridSpacingMeters     float64 `yaml:"grid_spacing_meters"`
	SolverTimeoutSeconds  int     `yaml:"solver_timeout_seconds"`
	CoverageCloudWeight   float64 `yaml:"coverage_cloud_weight"`
	CoverageQualityWeight float64 `yaml:"coverage_quality_weight"`
}

func (a AutoSelectConfig) Validate() error {
	switch a.Strategy {
	case "best_n", "all_above_threshold", "best_per_week", "coverage_greedy", "coverage_optimal":
	default:
		return fmt.Errorf("auto_select: unknown strategy %q", a.Strategy)
	}
	if a.MaxProducts < 1 {
		return fmt.Errorf("auto_select: max_products must be >= 1")
	}
	if a.QualityThreshold < 0 || a.QualityThreshold > 1 {
		return fmt.Errorf("auto_select: quality_threshold must be within 0..1")
	}
	sum := a.AOICoverageWeight + a.CloudCoverWeight + a.RecencyWeight
	if diff := sum - 1.0; diff < -weightTolerance || diff > weightTolerance {
		return fmt.Errorf("auto_select: scoring weights must sum to 1 (+/-%.2f), got %v", weightTolerance, sum)
	}
	if a.MinCoverageFraction < 0.5 || a.MinCoverageFraction > 1 {
		return fmt.Errorf("auto_select: min_coverage_fraction must be within 0.5..1.0")
	}
	if a.GridSpacingMeters < 0 {
		return fmt.Errorf("auto_select: grid_spacing_meters must be >= 0")
	}
	if a.SolverTimeoutSeconds < 1 {
		return fmt.Errorf("auto_select: solver_timeout_seconds must be >= 1")
	}
	coverageSum := a.CoverageCloudWeight + a.CoverageQualityWeight
	if diff := coverageSum - 1.0; diff < -weightTolerance || diff > weightTolerance {
		return fmt.Errorf("auto_select: coverage weights must sum to 1 (+/-%.2f), got %v", weightTolerance, coverageSum)
	}
	return nil
}
