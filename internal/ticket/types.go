package ticket

// Sentinel values substituted for fields whose real value is absent,
// implausible, or a known upstream placeholder.
const (
	NoTech        = "NO_TECH"
	DummyLocation = "dummy_location"
	NoLocation    = "no_location"
)

// Canonical status values. Unknown non-empty codes pass through verbatim
// so new upstream codes stay visible in the output.
const (
	StatusOffline     = "offline"
	StatusNeverOnline = "never_online"
	StatusOnline      = "online"
)

// Source column names recognized in ticket exports. Lookup is case- and
// surrounding-whitespace-insensitive; the first matching column wins.
const (
	ColOnlineStatus    = "OnlineStatus"
	ColRefcode         = "Refcode"
	ColMeterNo         = "Meter_no"
	ColMaterialGroup   = "Material_Group_Name"
	ColCustomerName    = "customer_name"
	ColPhone           = "phone"
	ColCategory        = "Category"
	ColStreet          = "Street"
	ColOfficeName      = "OFFICE_NAME"
	ColLatitudeTicket  = "Latitude_Ticket"
	ColLongitudeTicket = "Longitude_Ticket"
	ColLatitudeApp     = "Latitude_App"
	ColLongitudeApp    = "Longitude_app"
	ColSubmitDate      = "SubmitDate"
	ColProblem         = "Problem"
	ColSolution        = "Solution"
)

// RecognizedColumns lists every source column the transformer consumes.
var RecognizedColumns = []string{
	ColOnlineStatus, ColRefcode, ColMeterNo, ColMaterialGroup,
	ColCustomerName, ColPhone, ColCategory, ColStreet, ColOfficeName,
	ColLatitudeTicket, ColLongitudeTicket, ColLatitudeApp, ColLongitudeApp,
	ColSubmitDate, ColProblem, ColSolution,
}

// RawRecord is one source row, keyed by the column names as they appear
// in the export. Values are scalars rendered as strings.
type RawRecord map[string]string

// Dataset is an immutable snapshot of one ticket export.
type Dataset struct {
	Columns  []string
	Rows     []RawRecord
	Source   string
	Encoding string
}

// CanonicalRecord is a ticket after all field normalization rules have
// been applied. Latitude and Longitude hold either a 6-decimal-rounded
// numeric string or one of the paired location sentinels, never a mix.
type CanonicalRecord struct {
	SequenceNo       int    `json:"sequence_no"`
	Status           string `json:"status"`
	ReferenceCode    string `json:"reference_code"`
	MeterNo          string `json:"meter_no"`
	ConnectionMethod string `json:"connection_method"`
	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	StreetBuilding   string `json:"street_building"`
	OfficeRegion     string `json:"office_region"`
	Latitude         string `json:"latitude"`
	Longitude        string `json:"longitude"`
	SubmitDate       string `json:"submit_date"`
}

// FeedbackRecord is a canonical record whose source row carried
// free-text problem or solution content.
type FeedbackRecord struct {
	CanonicalRecord
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

// Streams is the routed record set: records without feedback text in
// Main, the rest in Feedback. The two are disjoint and together cover
// the input.
type Streams struct {
	Main     []CanonicalRecord
	Feedback []FeedbackRecord
}

// Resequence renumbers both streams 1..N. Sequence numbers are
// view-relative ranks, not identities; they are recomputed on every
// reorder.
func (s *Streams) Resequence() {
	for i := range s.Main {
		s.Main[i].SequenceNo = i + 1
	}
	for i := range s.Feedback {
		s.Feedback[i].SequenceNo = i + 1
	}
}
