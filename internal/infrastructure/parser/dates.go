package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"ArticlesHarvester/internal/domain"
)

// ParseDate reads a listing date using layout first and a lenient parser second.
// Anything else is reported as domain.ErrParseAmbiguity so callers can treat it as old.
func ParseDate(text, layout string, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", domain.ErrParseAmbiguity)
	}
	if loc == nil {
		loc = time.UTC
	}
	if layout != "" {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return domain.Day(t), nil
		}
	}
	t, err := dateparse.ParseIn(text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrParseAmbiguity, text)
	}
	return domain.Day(t.In(loc)), nil
}
