package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mwalimu/kazi/core"
)

const dateLayout = "2006-01-02"

// dateParam parses the `date` query param as a UTC calendar date, falling
// back to the given default when absent.
func dateParam(ctx echo.Context, fallback time.Time) (time.Time, error) {
	raw := ctx.QueryParam("date")
	if raw == "" {
		return core.DateOf(fallback), nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "invalid date, expected YYYY-MM-DD"})
	}
	return date, nil
}
