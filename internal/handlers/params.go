package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"gstbill/internal/apperrors"
	"gstbill/internal/services"
)

const dateLayout = "2006-01-02"

func pageParams(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultPageSize)
}

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole day.
func parseDate(field, raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, apperrors.Invalid(field, "must be YYYY-MM-DD or RFC 3339")
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// dateRange reads ?from=&to=. Missing bounds default to the start of the
// current month and now.
func dateRange(c *fiber.Ctx, now time.Time) (time.Time, time.Time, error) {
	from, err := parseDate("from", c.Query("from"), false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("to", c.Query("to"), true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == nil {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		from = &start
	}
	if to == nil {
		to = &now
	}
	return *from, *to, nil
}
