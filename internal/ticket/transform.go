package ticket

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDataset is the batch-level fatal for an export with no rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// ColumnError is the batch-level fatal for an export whose header shares
// nothing with the recognized column set.
type ColumnError struct {
	Expected []string
	Found    []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("no recognized columns: expected one of [%s], found [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Found, ", "))
}

// Stats counts field-level degradations observed while transforming a
// batch. Degraded fields stay silent in the output data; these counters
// are the operator-visible side channel.
type Stats struct {
	InputRows     int
	SwappedCoords int
	DummyCoords   int
	MissingCoords int
	NoTechRows    int
}

// columnIndex resolves recognized column names against the export
// header, case- and surrounding-whitespace-insensitively. The first
// matching header cell wins; absent columns read as all-blank.
type columnIndex map[string]string

func indexColumns(ds *Dataset) columnIndex {
	idx := make(columnIndex, len(RecognizedColumns))
	for _, want := range RecognizedColumns {
		for _, have := range ds.Columns {
			if strings.EqualFold(strings.TrimSpace(have), want) {
				idx[want] = have
				break
			}
		}
	}
	return idx
}

func (idx columnIndex) value(row RawRecord, name string) string {
	key, ok := idx[name]
	if !ok {
		return ""
	}
	return row[key]
}

// Transform produces exactly one canonical record per raw row, in input
// order, applying every field normalization rule. Malformed individual
// fields degrade to their documented defaults and are counted in Stats;
// only batch-level structural failures abort.
func Transform(ds *Dataset) ([]CanonicalRecord, Stats, error) {
	var stats Stats
	if len(ds.Rows) == 0 {
		return nil, stats, ErrEmptyDataset
	}
	idx := indexColumns(ds)
	if len(idx) == 0 {
		return nil, stats, &ColumnError{Expected: RecognizedColumns, Found: ds.Columns}
	}

	stats.InputRows = len(ds.Rows)
	records := make([]CanonicalRecord, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		rec := CanonicalRecord{
			SequenceNo:    i + 1,
			Status:        NormalizeStatus(idx.value(row, ColOnlineStatus)),
			ReferenceCode: cleanScalar(idx.value(row, ColRefcode)),
			MeterNo:       cleanScalar(idx.value(row, ColMeterNo)),
			CustomerName:  cleanScalar(idx.value(row, ColCustomerName)),
			CustomerPhone: NormalizePhone(idx.value(row, ColPhone)),
			StreetBuilding: BuildCompositeField(
				idx.value(row, ColCategory), idx.value(row, ColStreet)),
			OfficeRegion: cleanScalar(idx.value(row, ColOfficeName)),
			SubmitDate:   strings.TrimSpace(idx.value(row, ColSubmitDate)),
		}
		rec.ConnectionMethod = ResolveConnectionMethod(
			idx.value(row, ColMeterNo), idx.value(row, ColMaterialGroup))
		if rec.ConnectionMethod == NoTech {
			stats.NoTechRows++
		}

		lat, lon, outcome := ResolveCoordinates(
			idx.value(row, ColLatitudeTicket), idx.value(row, ColLongitudeTicket),
			idx.value(row, ColLatitudeApp), idx.value(row, ColLongitudeApp))
		rec.Latitude, rec.Longitude = lat, lon
		switch outcome {
		case CoordSwapped:
			stats.SwappedCoords++
		case CoordDummy:
			stats.DummyCoords++
		case CoordMissing:
			stats.MissingCoords++
		}

		records = append(records, rec)
	}
	return records, stats, nil
}

// Route partitions canonical records into main and feedback streams
// based on the originating raw rows, preserving input order within each
// stream, then renumbers both streams independently.
func Route(ds *Dataset, records []CanonicalRecord) Streams {
	idx := indexColumns(ds)
	var streams Streams
	for i, rec := range records {
		if i >= len(ds.Rows) {
			break
		}
		row := ds.Rows[i]
		problem := feedbackText(idx.value(row, ColProblem))
		solution := feedbackText(idx.value(row, ColSolution))
		if problem != "" || solution != "" {
			streams.Feedback = append(streams.Feedback, FeedbackRecord{
				CanonicalRecord: rec,
				Problem:         problem,
				Solution:        solution,
			})
			continue
		}
		streams.Main = append(streams.Main, rec)
	}
	streams.Resequence()
	return streams
}

// feedbackText returns the trimmed free-text value, blanking the literal
// "nan" artifact. Non-empty output routes the record to feedback.
func feedbackText(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}
