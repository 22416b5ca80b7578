package config

import "fmt"

// FilterConfig is a job's filters block, feeding coverage.FilterParams.
type FilterConfig struct {
	MaxCloudCover  float64 `yaml:"max_cloud_cover"`
	MinAOICoverage float64 `yaml:"min_aoi_coverage"`
	ProductLevel   string  `yaml:"product_level"`
}

func (f FilterConfig) Validate() error {
	if f.MaxCloudCover < 0 || f.MaxCloudCover > 100 {
		return fmt.Errorf("filters: max_cloud_cover must be within 0..100")
	}
	if f.MinAOICoverage < 0 || f.MinAOICoverage > 100 {
		return fmt.Errorf("filters: min_aoi_coverage must be within 0..100")
	}
	return nil
}
