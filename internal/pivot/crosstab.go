package pivot

import (
	"sort"
	"strings"

	"gprs_formatter/internal/ticket"
)

// Labels substituted for blank dimension values in the cross-tab.
const (
	UnknownMethod = "Unknown"
	BlankStatus   = "blank"
)

// CrossTab counts records per (connection method, status) cell.
// Statuses are sorted ascending; methods keep first-encounter order.
type CrossTab struct {
	Statuses []string      `json:"statuses"`
	Rows     []CrossTabRow `json:"rows"`
}

// CrossTabRow holds one method's counts, aligned with Statuses.
type CrossTabRow struct {
	Method string `json:"method"`
	Counts []int  `json:"counts"`
}

// Tabulate builds the connection-type by status cross-tabulation.
func Tabulate(records []ticket.CanonicalRecord) CrossTab {
	type cell struct{ method, status string }

	methods := []string{}
	seenMethod := map[string]bool{}
	seenStatus := map[string]bool{}
	counts := map[cell]int{}

	for _, rec := range records {
		method := strings.TrimSpace(rec.ConnectionMethod)
		if method == "" {
			method = UnknownMethod
		}
		status := strings.TrimSpace(rec.Status)
		if status == "" {
			status = BlankStatus
		}
		if !seenMethod[method] {
			seenMethod[method] = true
			methods = append(methods, method)
		}
		seenStatus[status] = true
		counts[cell{method, status}]++
	}

	var ct CrossTab
	ct.Statuses = make([]string, 0, len(seenStatus))
	for s := range seenStatus {
		ct.Statuses = append(ct.Statuses, s)
	}
	sort.Strings(ct.Statuses)

	for _, method := range methods {
		row := CrossTabRow{Method: method, Counts: make([]int, len(ct.Statuses))}
		for i, s := range ct.Statuses {
			row.Counts[i] = counts[cell{method, s}]
		}
		ct.Rows = append(ct.Rows, row)
	}
	return ct
}
