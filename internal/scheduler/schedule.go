package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Schedule yields the next fire time strictly after t, in t's location.
// A zero time means the schedule never fires again.
type Schedule = cron.Schedule

// Six-field expressions with a leading seconds field. "?" reads as "*".
var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func Parse(spec string) (Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// MustParse is Parse for expressions fixed at compile time.
func MustParse(spec string) Schedule {
	s, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return s
}
