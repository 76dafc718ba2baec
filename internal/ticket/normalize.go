package ticket

import (
	"math"
	"strconv"
	"strings"
)

// CoordOutcome reports what ResolveCoordinates did with a record's
// coordinate pair, for operator-visible counting.
type CoordOutcome int

const (
	CoordReal CoordOutcome = iota
	CoordSwapped
	CoordDummy
	CoordMissing
)

// The exact placeholder pair injected upstream for tickets filed without
// a device fix. Matched exactly, no tolerance.
const (
	dummyLat = 30
	dummyLon = 34
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// NormalizeStatus maps raw OnlineStatus codes to canonical statuses.
// Empty and NaN-rendered values map to ""; unrecognized codes are
// returned verbatim.
func NormalizeStatus(raw string) string {
	s := strings.TrimSpace(raw)
	switch s {
	case "0", "0.0":
		return StatusOffline
	case "-1", "-1.0":
		return StatusNeverOnline
	case "1", "1.0":
		return StatusOnline
	}
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// NormalizePhone canonicalizes a phone number into local 07xxxxxxxx
// format where the shape allows, and otherwise passes the cleaned digits
// through unchanged. No plausibility validation beyond these shapes.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}
	s = strings.TrimSuffix(s, ".0")
	s = phoneSeparators.Replace(s)

	switch {
	case strings.HasPrefix(s, "962"):
		rest := s[3:]
		if len(rest) == 9 && rest[0] == '7' {
			return "0" + rest
		}
	case len(s) == 9 && s[0] == '7':
		return "0" + s
	case len(s) == 10 && strings.HasPrefix(s, "07"):
		return s
	}
	return s
}

// ResolveCoordinates picks a usable latitude/longitude pair, preferring
// the ticket pair over the app pair. The exact placeholder pair (30, 34)
// on the ticket columns yields the dummy sentinel regardless of the app
// values. A pair with latitude > longitude is transposed upstream and is
// swapped back rather than rejected. Values are rounded to 6 decimals.
func ResolveCoordinates(latTicket, lonTicket, latApp, lonApp string) (string, string, CoordOutcome) {
	lat, latOK := parseCoordinate(latTicket)
	lon, lonOK := parseCoordinate(lonTicket)
	if latOK && lonOK && lat == dummyLat && lon == dummyLon {
		return DummyLocation, DummyLocation, CoordDummy
	}
	if !latOK || !lonOK {
		lat, latOK = parseCoordinate(latApp)
		lon, lonOK = parseCoordinate(lonApp)
	}
	if !latOK || !lonOK {
		return NoLocation, NoLocation, CoordMissing
	}

	outcome := CoordReal
	if lat > lon {
		lat, lon = lon, lat
		outcome = CoordSwapped
	}
	return formatCoordinate(lat), formatCoordinate(lon), outcome
}

// BuildCompositeField joins the non-empty trimmed parts with a dash.
func BuildCompositeField(category, street string) string {
	cat := cleanScalar(category)
	st := cleanScalar(street)
	switch {
	case cat != "" && st != "":
		return cat + "-" + st
	case cat != "":
		return cat
	default:
		return st
	}
}

// ResolveConnectionMethod returns the sentinel NO_TECH for tickets
// without a real meter number, and the communication method otherwise.
func ResolveConnectionMethod(meterNo, commMethod string) string {
	m := strings.ToLower(strings.TrimSpace(meterNo))
	switch m {
	case "", "nan", "0", "0.0":
		return NoTech
	}
	return cleanScalar(commMethod)
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
}

// cleanScalar trims a raw value and blanks the literal "nan" left behind
// by float-formatted empty cells in the source exports.
func cleanScalar(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}
