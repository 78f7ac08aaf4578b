package models

// LookupStatus is the terminal outcome of a warranty lookup.
type LookupStatus string

const (
	StatusPending       LookupStatus = "pending"
	StatusSuccess       LookupStatus = "success"
	StatusSuccessNoData LookupStatus = "success_no_data"
	StatusNotFound      LookupStatus = "not_found"
	StatusUnsupported   LookupStatus = "unsupported"
	StatusError         LookupStatus = "error"
)

// Terminal reports whether the status may be returned to a caller.
func (s LookupStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusSuccessNoData, StatusNotFound, StatusUnsupported, StatusError:
		return true
	}
	return false
}

// Cacheable reports whether a record with this status describes the
// manufacturer's data rather than a transient failure.
func (s LookupStatus) Cacheable() bool {
	return s == StatusSuccess || s == StatusSuccessNoData || s == StatusNotFound
}

// Component is one warranty coverage line, e.g. "Compressor, 10 years".
type Component struct {
	Name      string `json:"name"`
	TermYears int    `json:"term_years"`
	EndDate   string `json:"end_date"` // MM/DD/YYYY
}

// PrimaryComponent returns the component with the longest term. The first
// occurrence wins ties. End dates are not compared.
func PrimaryComponent(components []Component) (Component, bool) {
	if len(components) == 0 {
		return Component{}, false
	}
	best := components[0]
	for _, c := range components[1:] {
		if c.TermYears > best.TermYears {
			best = c
		}
	}
	return best, true
}

// WarrantyData is the normalized warranty information parsed from a
// manufacturer's result page. Fields a site does not expose stay empty.
type WarrantyData struct {
	ModelNumber      string      `json:"model_number,omitempty"`
	SerialNumber     string      `json:"serial_number,omitempty"`
	RegistrationType string      `json:"registration_type,omitempty"`
	Brand            string      `json:"brand,omitempty"`
	Manufacturer     string      `json:"manufacturer,omitempty"`
	InstallDate      string      `json:"install_date,omitempty"`
	WarrantyStart    string      `json:"warranty_start,omitempty"`
	WarrantyEnd      string      `json:"warranty_end,omitempty"`
	Tonnage          *float64    `json:"tonnage,omitempty"`
	Capacity         string      `json:"capacity,omitempty"`
	AgeYears         *float64    `json:"age_years,omitempty"`
	Components       []Component `json:"components"`
	WarrantyStatus   string      `json:"warranty_status,omitempty"`
	RawTextSnippet   string      `json:"raw_text_snippet,omitempty"`

	// Source and Note describe placeholder data when the document was
	// captured but its text could not be read.
	Source string `json:"source,omitempty"`
	Note   string `json:"note,omitempty"`
}

// PrimaryEndDate is the end date of the longest-term component.
func (d *WarrantyData) PrimaryEndDate() string {
	if d == nil {
		return ""
	}
	c, ok := PrimaryComponent(d.Components)
	if !ok {
		return ""
	}
	return c.EndDate
}

// WarrantyRecord is the result envelope returned for every lookup,
// regardless of which site adapter produced it.
type WarrantyRecord struct {
	LookupStatus    LookupStatus  `json:"lookup_status"`
	SerialNumber    string        `json:"serial_number"`
	Manufacturer    string        `json:"manufacturer,omitempty"`
	Adapter         string        `json:"adapter,omitempty"`
	WarrantyData    *WarrantyData `json:"warranty_data"`
	Error           string        `json:"error,omitempty"`
	PDFURL          string        `json:"pdf_url,omitempty"`
	PDFPath         string        `json:"pdf_path,omitempty"`
	ScreenshotPath  string        `json:"screenshot_path,omitempty"`
	RawTextPath     string        `json:"raw_text_path,omitempty"`
	DebugScreenshot string        `json:"debug_screenshot,omitempty"`

	// CacheStatus is "hit" or "miss" when the caller asked for cache reuse.
	CacheStatus string `json:"cache_status,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// NewRecord starts a record in the pending state.
func NewRecord(serial, manufacturer, adapter string) *WarrantyRecord {
	return &WarrantyRecord{
		LookupStatus: StatusPending,
		SerialNumber: serial,
		Manufacturer: manufacturer,
		Adapter:      adapter,
	}
}

// Fail moves the record to the error state. Any parsed data is dropped.
func (r *WarrantyRecord) Fail(msg string) {
	r.LookupStatus = StatusError
	r.Error = msg
	r.WarrantyData = nil
}

// Finalize enforces the envelope invariants before the record leaves an
// adapter:
//   - pending is never returned; it becomes error;
//   - success carries warranty data or a document URL, otherwise it is
//     downgraded to success_no_data;
//   - error never carries warranty data and always carries a message.
func (r *WarrantyRecord) Finalize() *WarrantyRecord {
	switch r.LookupStatus {
	case StatusPending, "":
		msg := "lookup ended without a result"
		if r.Error != "" {
			msg = r.Error
		}
		r.Fail(msg)
	case StatusSuccess:
		if r.WarrantyData == nil && r.PDFURL == "" {
			r.LookupStatus = StatusSuccessNoData
		}
	case StatusError:
		r.WarrantyData = nil
		if r.Error == "" {
			r.Error = "lookup failed"
		}
	}
	return r
}

// Clone returns a shallow copy whose components slice is not shared.
func (r *WarrantyRecord) Clone() *WarrantyRecord {
	c := *r
	if r.WarrantyData != nil {
		d := *r.WarrantyData
		d.Components = append([]Component(nil), r.WarrantyData.Components...)
		c.WarrantyData = &d
	}
	return &c
}
