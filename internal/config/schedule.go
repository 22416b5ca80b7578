package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ScheduleConfig is a job's schedule block; which fields are required
// depends on Type.
type ScheduleConfig struct {
	Type      string `yaml:"type"`
	Time      string `yaml:"time"`
	Month     int    `yaml:"month"`
	Day       int    `yaml:"day"`
	DayOfWeek string `yaml:"day_of_week"`
	Cron      string `yaml:"cron"`
}

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

var weekdayNames = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

func (s ScheduleConfig) Validate() error {
	switch s.Type {
	case "yearly":
		if s.Time == "" || !timePattern.MatchString(s.Time) {
			return fmt.Errorf("schedule: yearly requires time in HH:MM format")
		}
		if s.Month < 1 || s.Month > 12 {
			return fmt.Errorf("schedule: yearly requires month in 1..12")
		}
		if s.Day < 1 || s.Day > 31 {
			return fmt.Errorf("schedule: yearly requires day in 1..31")
		}
	case "monthly":
		if s.Time == "" || !timePattern.MatchString(s.Time) {
			return fmt.Errorf("schedule: monthly requires time in HH:MM format")
		}
		if s.Day < 1 || s.Day > 31 {
			return fmt.Errorf("schedule: monthly requires day in 1..31")
		}
	case "weekly":
		if s.Time == "" || !timePattern.MatchString(s.Time) {
			return fmt.Errorf("schedule: weekly requires time in HH:MM format")
		}
		if _, err := WeekdayNumber(s.DayOfWeek); err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
	case "custom":
		fields := strings.Fields(s.Cron)
		if len(fields) != 5 {
			return fmt.Errorf("schedule: custom cron must have exactly 5 fields, got %q", s.Cron)
		}
	default:
		return fmt.Errorf("schedule: unknown type %q", s.Type)
	}
	return nil
}

// WeekdayNumber parses a day_of_week value that is either a weekday name
// (monday..sunday) or a literal 0..6, with Monday as 0.
func WeekdayNumber(dayOfWeek string) (int, error) {
	lower := strings.ToLower(strings.TrimSpace(dayOfWeek))
	if n, ok := weekdayNames[lower]; ok {
		return n, nil
	}
	if len(lower) == 1 && lower[0] >= '0' && lower[0] <= '6' {
		return int(lower[0] - '0'), nil
	}
	return 0, fmt.Errorf("invalid day_of_week %q", dayOfWeek)
}
