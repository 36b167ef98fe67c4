package booking

import (
	"testing"

	"equiprent/internal/domain/shared/daterange"
)

func rng(t *testing.T, start, end string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.Parse(start, end)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return dr
}

func TestBlocks_CancelledNeverBlocks(t *testing.T) {
	req := rng(t, "2025-06-01", "2025-06-05")
	b := Booking{ID: "b1", EquipmentID: "ex-1", Range: rng(t, "2025-06-03", "2025-06-04"), Status: StatusCancelled}
	if b.Blocks(req) {
		t.Fatalf("cancelled booking must not block")
	}
	b.Status = StatusConfirmed
	if !b.Blocks(req) {
		t.Fatalf("confirmed overlapping booking must block")
	}
}

func TestBlocking_DropsDisjointRows(t *testing.T) {
	req := rng(t, "2025-06-01", "2025-06-05")
	rows := []Booking{
		{ID: "before", Range: rng(t, "2025-05-20", "2025-05-31"), Status: StatusConfirmed},
		{ID: "after", Range: rng(t, "2025-06-06", "2025-06-10"), Status: StatusPending},
		{ID: "inside", Range: rng(t, "2025-06-02", "2025-06-02"), Status: StatusActive},
	}
	got := Blocking(rows, req)
	if len(got) != 1 || got[0].ID != "inside" {
		t.Fatalf("unexpected blocking rows: %+v", got)
	}
}

func TestParseStatus_Normalizes(t *testing.T) {
	if ParseStatus(" Cancelled ") != StatusCancelled {
		t.Fatalf("expected cancelled status")
	}
}
