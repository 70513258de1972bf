package shared

import (
	"strings"
	"time"

	"github.com/snipero7/qr24-sub000/internal/service"
)

const dateLayout = "2006-01-02"

// ParseDateRange 解析 created_from / created_to（按门店时区的自然日，to 含当天）
func ParseDateRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	verr := &service.ValidationError{}
	var start, end *time.Time
	if value := strings.TrimSpace(from); value != "" {
		parsed, err := time.ParseInLocation(dateLayout, value, loc)
		if err != nil {
			verr.Add("created_from", "date", "expected YYYY-MM-DD")
		} else {
			start = &parsed
		}
	}
	if value := strings.TrimSpace(to); value != "" {
		parsed, err := time.ParseInLocation(dateLayout, value, loc)
		if err != nil {
			verr.Add("created_to", "date", "expected YYYY-MM-DD")
		} else {
			next := parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
			end = &next
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
