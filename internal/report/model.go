// Package report assembles the immutable output document handed to the
// rendering collaborator. The renderer must treat stream order as final
// and must not re-derive aggregates.
package report

import (
	"fmt"
	"sort"
	"time"

	"gprs_formatter/internal/pivot"
	"gprs_formatter/internal/ticket"
)

// AgeTag is advisory row metadata used only for visual highlighting.
type AgeTag string

const (
	AgeStale AgeTag = "stale"
	AgeFresh AgeTag = "fresh"
)

// Pivots bundles the three aggregate views built over the main stream.
type Pivots struct {
	Temporal       pivot.DailyPivot      `json:"temporal"`
	TemporalTotals []pivot.MethodTotal   `json:"temporal_totals"`
	CrossTab       pivot.CrossTab        `json:"cross_tab"`
	Location       []pivot.LocationSlice `json:"location"`
}

// Model is the assembled report. Feedback is nil when no record carried
// feedback text. RowAges keys records by "<stream>/<sequence_no>", which
// is stable because sequence numbers are final at assembly time.
type Model struct {
	Main     []ticket.CanonicalRecord `json:"main"`
	Feedback []ticket.FeedbackRecord  `json:"feedback,omitempty"`
	Pivots   Pivots                   `json:"pivots"`
	RowAges  map[string]AgeTag        `json:"row_age_tags,omitempty"`
}

// Assemble orders both streams by connection method (stable, blanks
// last), renumbers them, builds the aggregates over the ordered main
// stream, and annotates row ages relative to today. staleAfterDays and
// freshLagDays are the highlight windows (7 and 1 in production).
func Assemble(streams ticket.Streams, today time.Time, staleAfterDays, freshLagDays int) Model {
	sortByMethod(streams.Main, func(r ticket.CanonicalRecord) string { return r.ConnectionMethod })
	sortByMethod(streams.Feedback, func(r ticket.FeedbackRecord) string { return r.ConnectionMethod })
	streams.Resequence()

	daily := pivot.Daily(streams.Main)
	m := Model{
		Main:     streams.Main,
		Feedback: streams.Feedback,
		Pivots: Pivots{
			Temporal:       daily,
			TemporalTotals: daily.Simplified(),
			CrossTab:       pivot.Tabulate(streams.Main),
			Location:       pivot.Locations(streams.Main),
		},
		RowAges: map[string]AgeTag{},
	}

	day := dateOnly(today)
	staleCutoff := day.AddDate(0, 0, -staleAfterDays)
	freshDay := day.AddDate(0, 0, -freshLagDays)
	for _, rec := range m.Main {
		tagRow(m.RowAges, "main", rec.SequenceNo, rec.SubmitDate, staleCutoff, freshDay)
	}
	for _, rec := range m.Feedback {
		tagRow(m.RowAges, "feedback", rec.SequenceNo, rec.SubmitDate, staleCutoff, freshDay)
	}
	if len(m.RowAges) == 0 {
		m.RowAges = nil
	}
	return m
}

func tagRow(tags map[string]AgeTag, stream string, seq int, submitDate string, staleCutoff, freshDay time.Time) {
	t, ok := ticket.ParseSubmitDate(submitDate)
	if !ok {
		return
	}
	d := dateOnly(t)
	key := fmt.Sprintf("%s/%d", stream, seq)
	switch {
	case !d.After(staleCutoff):
		tags[key] = AgeStale
	case d.Equal(freshDay):
		tags[key] = AgeFresh
	}
}

func sortByMethod[T any](records []T, method func(T) string) {
	sort.SliceStable(records, func(i, j int) bool {
		mi, mj := method(records[i]), method(records[j])
		if (mi == "") != (mj == "") {
			return mj == ""
		}
		return mi < mj
	})
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
