package phase

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Description is a human-readable view of a cron expression.
type Description struct {
	Expression  string
	Description string
	NextRuns    []time.Time // next 5 firings
	TimeZone    string
}

var describeParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a schedule Add accepts.
func ValidateSchedule(expr string) error {
	_, err := describeParser.Parse(expr)
	return err
}

// Describe parses expr and lists its next firings after from, in from's
// location.
func Describe(expr string, from time.Time) (Description, error) {
	schedule, err := describeParser.Parse(expr)
	if err != nil {
		return Description{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	nextRuns := make([]time.Time, 5)
	current := from
	for i := range nextRuns {
		current = schedule.Next(current)
		nextRuns[i] = current
	}

	return Description{
		Expression:  expr,
		Description: describe(expr),
		NextRuns:    nextRuns,
		TimeZone:    from.Location().String(),
	}, nil
}

func describe(expr string) string {
	switch expr {
	case "@yearly", "@annually":
		return "Once a year (January 1st at midnight)"
	case "@monthly":
		return "Once a month (1st day at midnight)"
	case "@weekly":
		return "Once a week (Sunday at midnight)"
	case "@daily", "@midnight":
		return "Once a day (at midnight)"
	case "@hourly":
		return "Once an hour (at minute 0)"
	}
	return fmt.Sprintf("Custom schedule: %s", expr)
}
