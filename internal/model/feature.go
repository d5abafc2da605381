package model

// FeatureKeys is the allow-list of record fields copied onto a feature, in
// output order.
var FeatureKeys = []string{
	KeyBusinessName,
	KeyAverageScore,
	KeyTotalInspections,
	KeyHighScore,
	KeyAddress,
}

// Location is a WGS84 point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Feature is a geocoded record. Location is nil when the geocoder found no
// match for the address.
type Feature struct {
	Location   *Location      `json:"location,omitempty"`
	Properties map[string]any `json:"properties"`
}

// Address returns the feature's Address property.
func (f Feature) Address() string {
	s, _ := f.Properties[KeyAddress].(string)
	return s
}
