package pivot

import (
	"testing"

	"gprs_formatter/internal/ticket"
)

func rec(method, date string) ticket.CanonicalRecord {
	return ticket.CanonicalRecord{ConnectionMethod: method, SubmitDate: date}
}

func TestDailyPivot(t *testing.T) {
	records := []ticket.CanonicalRecord{
		rec("GPRS", "2024-03-05"),
		rec("GPRS", "2024-03-04"),
		rec("Ethernet", "2024-03-05"),
		rec("GPRS", "2024-03-05"),
		rec("Ethernet", "not a date"),
	}
	p := Daily(records)

	if len(p.Dates) != 2 || p.Dates[0] != "2024-03-04" || p.Dates[1] != "2024-03-05" {
		t.Fatalf("dates = %v", p.Dates)
	}
	if p.Unparsed != 1 {
		t.Fatalf("unparsed = %d", p.Unparsed)
	}
	if len(p.Rows) != 2 {
		t.Fatalf("rows = %d", len(p.Rows))
	}
	// Methods keep first-encounter order.
	if p.Rows[0].Method != "GPRS" || p.Rows[1].Method != "Ethernet" {
		t.Fatalf("row order = %s, %s", p.Rows[0].Method, p.Rows[1].Method)
	}
	if p.Rows[0].Total != 3 || p.Rows[1].Total != 1 {
		t.Fatalf("totals = %d, %d", p.Rows[0].Total, p.Rows[1].Total)
	}
	if p.GrandTotal != 4 {
		t.Fatalf("grand total = %d", p.GrandTotal)
	}

	// Column totals line up with row totals.
	sum := 0
	for _, n := range p.DateTotals {
		sum += n
	}
	if sum != p.GrandTotal {
		t.Fatalf("date totals sum %d, grand total %d", sum, p.GrandTotal)
	}
}

func TestDailySimplified(t *testing.T) {
	records := []ticket.CanonicalRecord{
		rec("Ethernet", "2024-03-05"),
		rec("GPRS", "2024-03-05"),
		rec("GPRS", "2024-03-06"),
	}
	out := Daily(records).Simplified()
	if len(out) != 3 {
		t.Fatalf("rows = %d", len(out))
	}
	if out[0].Method != "GPRS" || out[0].Total != 2 {
		t.Fatalf("first row = %+v", out[0])
	}
	if out[1].Method != "Ethernet" || out[1].Total != 1 {
		t.Fatalf("second row = %+v", out[1])
	}
	last := out[len(out)-1]
	if last.Method != "Total" || last.Total != 3 {
		t.Fatalf("total row = %+v", last)
	}
}

func TestDailyEmpty(t *testing.T) {
	p := Daily(nil)
	if p.GrandTotal != 0 || len(p.Rows) != 0 || len(p.Dates) != 0 {
		t.Fatalf("empty pivot = %+v", p)
	}
	out := p.Simplified()
	if len(out) != 1 || out[0].Method != "Total" || out[0].Total != 0 {
		t.Fatalf("simplified empty = %+v", out)
	}
}
