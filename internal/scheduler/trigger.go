package scheduler

import (
	"fmt"
	"strconv"
	"strings"

	"satcoverage/internal/config"
)

// cronExpression translates a ScheduleConfig into a 5-field cron expression
// ("minute hour day month day_of_week").
func cronExpression(s config.ScheduleConfig) (string, error) {
	switch s.Type {
	case "custom":
		return s.Cron, nil
	}

	hour, minute, err := splitTime(s.Time)
	if err != nil {
		return "", fmt.Errorf("scheduler: %w", err)
	}

	switch s.Type {
	case "yearly":
		return fmt.Sprintf("%d %d %d %d *", minute, hour, s.Day, s.Month), nil
	case "monthly":
		return fmt.Sprintf("%d %d %d * *", minute, hour, s.Day), nil
	case "weekly":
		weekday, err := config.WeekdayNumber(s.DayOfWeek)
		if err != nil {
			return "", fmt.Errorf("scheduler: %w", err)
		}
		// WeekdayNumber is Monday=0..Sunday=6; the cron parser reads the DOW
		// field as POSIX Sunday=0..Saturday=6, so shift by one day.
		return fmt.Sprintf("%d %d * * %d", minute, hour, (weekday+1)%7), nil
	default:
		return "", fmt.Errorf("scheduler: unknown schedule type %q", s.Type)
	}
}

func splitTime(hhmm string) (hour, minute int, err error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q", hhmm)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", hhmm, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", hhmm, err)
	}
	return hour, minute, nil
}
