package consumption

// ReportRow is one hour's total consumption within a daily report.
//
// Reports are sparse: hours with no samples produce no row. Hour is the
// hour of day (0-23) in the site's local timezone.
type ReportRow struct {
	Hour             int     `json:"hour"`
	TotalConsumption float64 `json:"totalConsumption"`
}
