package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/snipero7/qr24-sub000/internal/service"
)

func TestParseDateRangeInclusiveEnd(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	from, to, err := ParseDateRange("2026-03-01", "2026-03-02", loc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !from.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected from: %v", from)
	}
	if to.Day() != 2 || to.Hour() != 23 || to.Minute() != 59 {
		t.Fatalf("to should cover the whole day, got %v", to)
	}
}

func TestParseDateRangeRejectsBadInput(t *testing.T) {
	_, _, err := ParseDateRange("03/01/2026", "", nil)
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	fields := service.FieldErrors(err)
	if len(fields) != 1 || fields[0].Field != "created_from" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestParseDateRangeEmpty(t *testing.T) {
	from, to, err := ParseDateRange("", " ", nil)
	if err != nil || from != nil || to != nil {
		t.Fatalf("empty range should yield nils, got %v %v %v", from, to, err)
	}
}
