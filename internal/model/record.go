package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Field labels used by the listing template and the score summary.
const (
	KeyBusinessName     = "Business Name"
	KeyAddress          = "Address"
	KeyAverageScore     = "Average Score"
	KeyHighScore        = "High Score"
	KeyTotalInspections = "Total Inspections"
)

// ScoreKeys are the record keys contributed by a ScoreSummary. They take
// precedence over metadata labels of the same name.
var ScoreKeys = []string{KeyAverageScore, KeyHighScore, KeyTotalInspections}

// ScoreSummary holds the inspection statistics derived from one listing.
type ScoreSummary struct {
	Average float64 `json:"average"`
	High    int     `json:"high"`
	Count   int     `json:"count"`
}

// Record is one restaurant listing: its metadata labels plus the score
// summary. A Record shares no memory with the document it came from.
type Record struct {
	Metadata *Metadata
	Summary  ScoreSummary
}

func isScoreKey(key string) bool {
	for _, k := range ScoreKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Keys returns the flattened record keys: metadata labels in encounter
// order followed by the three score keys.
func (r Record) Keys() []string {
	keys := make([]string, 0, r.Metadata.Len()+len(ScoreKeys))
	for _, k := range r.Metadata.Keys() {
		if isScoreKey(k) {
			continue
		}
		keys = append(keys, k)
	}
	return append(keys, ScoreKeys...)
}

// Value returns the flattened value for key. Metadata labels yield
// []string, score keys yield float64 or int.
func (r Record) Value(key string) (any, bool) {
	switch key {
	case KeyAverageScore:
		return r.Summary.Average, true
	case KeyHighScore:
		return r.Summary.High, true
	case KeyTotalInspections:
		return r.Summary.Count, true
	}
	if !r.Metadata.Has(key) {
		return nil, false
	}
	return r.Metadata.Get(key), true
}

// Fields returns the record as a flat map.
func (r Record) Fields() map[string]any {
	out := make(map[string]any, len(ScoreKeys)+r.Metadata.Len())
	for _, k := range r.Keys() {
		v, _ := r.Value(k)
		out[k] = v
	}
	return out
}

// Text returns the value for key rendered as a string. Multi-value labels
// are joined by single spaces.
func (r Record) Text(key string) string {
	v, ok := r.Value(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case []string:
		return JoinValues(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// BusinessName returns the joined Business Name values.
func (r Record) BusinessName() string {
	return r.Metadata.Joined(KeyBusinessName)
}

// Address returns the joined Address values.
func (r Record) Address() string {
	return r.Metadata.Joined(KeyAddress)
}

// MarshalJSON encodes the flattened record, preserving key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		v, _ := r.Value(k)
		if err := writeMember(&buf, k, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flattened record.
func (r *Record) UnmarshalJSON(data []byte) error {
	meta := NewMetadata()
	var summary ScoreSummary
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var target any
		switch key {
		case KeyAverageScore:
			target = &summary.Average
		case KeyHighScore:
			target = &summary.High
		case KeyTotalInspections:
			target = &summary.Count
		default:
			var vals []string
			if err := json.Unmarshal(raw, &vals); err != nil {
				return eris.Wrapf(err, "model: decode record field %q", key)
			}
			meta.appendAll(key, vals)
			return nil
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return eris.Wrapf(err, "model: decode record field %q", key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.Metadata = meta
	r.Summary = summary
	return nil
}

// JoinValues joins non-empty values with single spaces.
func JoinValues(vals []string) string {
	parts := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
