// Package pivot builds the aggregate views over the main ticket stream.
// Every builder is a pure function of its input: rebuilding on the same
// records yields identical output.
package pivot

import (
	"sort"
	"strings"

	"gprs_formatter/internal/ticket"
)

// DailyPivot cross-tabulates connection methods by calendar date.
// Dates are sorted ascending; DateTotals is the column-wise total row;
// row order is first-encounter order of each method.
type DailyPivot struct {
	Dates      []string   `json:"dates"`
	Rows       []DailyRow `json:"rows"`
	DateTotals []int      `json:"date_totals"`
	GrandTotal int        `json:"grand_total"`
	Unparsed   int        `json:"unparsed_dates"`
}

// DailyRow is one connection method's daily counts, aligned with Dates.
type DailyRow struct {
	Method string `json:"method"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// MethodTotal is one row of the simplified totals-only view.
type MethodTotal struct {
	Method string `json:"method"`
	Total  int    `json:"total"`
}

// Daily builds the temporal pivot. Rows whose submit date does not parse
// are excluded from this view only and counted in Unparsed.
func Daily(records []ticket.CanonicalRecord) DailyPivot {
	var p DailyPivot
	type cell struct{ method, date string }

	methods := []string{}
	seenMethod := map[string]bool{}
	seenDate := map[string]bool{}
	counts := map[cell]int{}

	for _, rec := range records {
		t, ok := ticket.ParseSubmitDate(rec.SubmitDate)
		if !ok {
			p.Unparsed++
			continue
		}
		date := t.Format("2006-01-02")
		method := strings.TrimSpace(rec.ConnectionMethod)
		if !seenMethod[method] {
			seenMethod[method] = true
			methods = append(methods, method)
		}
		seenDate[date] = true
		counts[cell{method, date}]++
	}

	p.Dates = make([]string, 0, len(seenDate))
	for d := range seenDate {
		p.Dates = append(p.Dates, d)
	}
	sort.Strings(p.Dates)

	p.DateTotals = make([]int, len(p.Dates))
	for _, method := range methods {
		row := DailyRow{Method: method, Counts: make([]int, len(p.Dates))}
		for i, d := range p.Dates {
			n := counts[cell{method, d}]
			row.Counts[i] = n
			row.Total += n
			p.DateTotals[i] += n
		}
		p.GrandTotal += row.Total
		p.Rows = append(p.Rows, row)
	}
	return p
}

// Simplified returns the totals-only table: one row per method sorted
// descending by count (stable, so ties keep encounter order), with the
// reserved Total row last.
func (p DailyPivot) Simplified() []MethodTotal {
	out := make([]MethodTotal, 0, len(p.Rows)+1)
	for _, row := range p.Rows {
		out = append(out, MethodTotal{Method: row.Method, Total: row.Total})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return append(out, MethodTotal{Method: "Total", Total: p.GrandTotal})
}
