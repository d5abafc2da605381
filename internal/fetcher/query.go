package fetcher

import (
	"net/url"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Source site defaults.
const (
	DefaultBaseURL = "http://info.kingcounty.gov"
	DefaultPath    = "/health/ehs/foodsafety/inspections/Results.aspx"
)

// Query parameter names accepted by the results page.
const (
	ParamOutput             = "Output"
	ParamBusinessName       = "Business_Name"
	ParamBusinessAddress    = "Business_Address"
	ParamLongitude          = "Longitude"
	ParamLatitude           = "Latitude"
	ParamCity               = "City"
	ParamZipCode            = "Zip_Code"
	ParamInspectionType     = "Inspection_Type"
	ParamInspectionStart    = "Inspection_Start"
	ParamInspectionEnd      = "Inspection_End"
	ParamClosedBusiness     = "Inspection_Closed_Business"
	ParamViolationPoints    = "Violation_Points"
	ParamViolationRedPoints = "Violation_Red_Points"
	ParamViolationDescr     = "Violation_Descr"
	ParamFuzzySearch        = "Fuzzy_Search"
	ParamSort               = "Sort"
)

var paramOrder = []string{
	ParamOutput, ParamBusinessName, ParamBusinessAddress, ParamLongitude,
	ParamLatitude, ParamCity, ParamZipCode, ParamInspectionType,
	ParamInspectionStart, ParamInspectionEnd, ParamClosedBusiness,
	ParamViolationPoints, ParamViolationRedPoints, ParamViolationDescr,
	ParamFuzzySearch, ParamSort,
}

// DefaultParams returns the full parameter set sent with every query.
func DefaultParams() map[string]string {
	p := make(map[string]string, len(paramOrder))
	for _, k := range paramOrder {
		p[k] = ""
	}
	p[ParamOutput] = "W"
	p[ParamInspectionType] = "All"
	p[ParamClosedBusiness] = "A"
	p[ParamFuzzySearch] = "N"
	p[ParamSort] = "H"
	return p
}

// IsKnownParam reports whether key is one of the results page parameters.
func IsKnownParam(key string) bool {
	return slices.Contains(paramOrder, key)
}

// Query is a results page request: the site location plus the complete
// parameter set.
type Query struct {
	BaseURL string
	Path    string
	params  map[string]string
}

// NewQuery creates a query with the default parameters. Empty baseURL or
// path fall back to the source site defaults.
func NewQuery(baseURL, path string) *Query {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if path == "" {
		path = DefaultPath
	}
	return &Query{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Path:    path,
		params:  DefaultParams(),
	}
}

// Set overrides a parameter. Unknown keys are ignored and Set reports false.
func (q *Query) Set(key, value string) bool {
	if !IsKnownParam(key) {
		return false
	}
	q.params[key] = value
	return true
}

// Apply overrides every known key in overrides and returns the ignored
// keys in sorted order.
func (q *Query) Apply(overrides map[string]string) []string {
	var ignored []string
	for k, v := range overrides {
		if !q.Set(k, v) {
			ignored = append(ignored, k)
		}
	}
	slices.Sort(ignored)
	return ignored
}

// Get returns the current value of a parameter.
func (q *Query) Get(key string) string {
	return q.params[key]
}

// Values returns the parameter set as url.Values. Empty parameters are
// included, as the results page expects every field.
func (q *Query) Values() url.Values {
	v := make(url.Values, len(paramOrder))
	for _, k := range paramOrder {
		v.Set(k, q.params[k])
	}
	return v
}

// URL builds the absolute request URL.
func (q *Query) URL() (string, error) {
	u, err := url.Parse(q.BaseURL + q.Path)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse query url")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", eris.Errorf("fetcher: query url %q is not absolute", q.BaseURL+q.Path)
	}
	u.RawQuery = q.Values().Encode()
	return u.String(), nil
}
