package config

import (
	"fmt"
	"time"
)

// DateRangeConfig is a job's date_range block: either a relative rolling
// window (days back from "now") or an absolute start/end pair.
type DateRangeConfig struct {
	Type      string `yaml:"type"`
	Days      int    `yaml:"days"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

const dateLayout = "2006-01-02"

func (d DateRangeConfig) Validate() error {
	switch d.Type {
	case "", "relative":
		if d.Days <= 0 {
			return fmt.Errorf("date_range: relative type requires days > 0")
		}
		if d.StartDate != "" || d.EndDate != "" {
			return fmt.Errorf("date_range: relative type must not set start_date/end_date")
		}
	case "absolute":
		if d.StartDate == "" || d.EndDate == "" {
			return fmt.Errorf("date_range: absolute type requires start_date and end_date")
		}
		start, err := time.Parse(dateLayout, d.StartDate)
		if err != nil {
			return fmt.Errorf("date_range: invalid start_date %q: %w", d.StartDate, err)
		}
		end, err := time.Parse(dateLayout, d.EndDate)
		if err != nil {
			return fmt.Errorf("date_range: invalid end_date %q: %w", d.EndDate, err)
		}
		if !start.Before(end) {
			return fmt.Errorf("date_range: start_date must be before end_date")
		}
		if d.Days != 0 {
			return fmt.Errorf("date_range: absolute type must not set days")
		}
	default:
		return fmt.Errorf("date_range: unknown type %q", d.Type)
	}
	return nil
}

// endOfDay is the offset from a parsed end_date's midnight to the last
// instant of that day (23:59:59.999).
const endOfDay = 23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond

// Resolve returns the concrete [start, end] window for this DateRangeConfig
// at reference time now, used by the catalog query builder. The returned
// end is inclusive of the entire end date.
func (d DateRangeConfig) Resolve(now time.Time) (start, end time.Time) {
	if d.Type == "absolute" {
		start, _ = time.Parse(dateLayout, d.StartDate)
		end, _ = time.Parse(dateLayout, d.EndDate)
		return start, end.Add(endOfDay)
	}
	return now.AddDate(0, 0, -d.Days), now
}
