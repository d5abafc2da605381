package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_AppendPreservesOrder(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("Business Name", "X")
	m.Append("Address", "123 Main St")
	m.Append("Address", "Seattle, WA 98109")
	m.Append("Phone", "")

	assert.Equal(t, []string{"Business Name", "Address", "Phone"}, m.Keys())
	assert.Equal(t, []string{"123 Main St", "Seattle, WA 98109"}, m.Get("Address"))
	assert.Equal(t, []string{""}, m.Get("Phone"))
	assert.Equal(t, "123 Main St Seattle, WA 98109", m.Joined("Address"))
	assert.Nil(t, m.Get("missing"))
	assert.Equal(t, 3, m.Len())
}

func TestMetadata_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("Address", "a")
	got := m.Get("Address")
	got[0] = "mutated"
	assert.Equal(t, []string{"a"}, m.Get("Address"))
}

func TestMetadata_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("A", "1")
	c := m.Clone()
	c.Append("A", "2")
	c.Append("B", "3")

	assert.Equal(t, []string{"1"}, m.Get("A"))
	assert.Equal(t, []string{"A"}, m.Keys())
	assert.Equal(t, []string{"A", "B"}, c.Keys())
}

func TestMetadata_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metadata
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Keys())
	assert.False(t, m.Has("x"))
	assert.Equal(t, 0, m.Clone().Len())
}

func TestMetadata_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("Zeta", "z")
	m.Append("Alpha", "a")

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"Zeta":["z"],"Alpha":["a"]}`, string(data))

	var back Metadata
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"Zeta", "Alpha"}, back.Keys())
}

func TestRecord_KeysAreMetadataPlusScores(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("Business Name", "X")
	m.Append("Address", "123 Main St")
	r := Record{Metadata: m, Summary: ScoreSummary{Average: 90.0, High: 95, Count: 2}}

	fields := r.Fields()
	assert.Len(t, fields, 5)
	assert.Equal(t, []string{"X"}, fields["Business Name"])
	assert.Equal(t, []string{"123 Main St"}, fields["Address"])
	assert.InDelta(t, 90.0, fields["Average Score"], 0.0001)
	assert.Equal(t, 95, fields["High Score"])
	assert.Equal(t, 2, fields["Total Inspections"])
}

func TestRecord_ScoreKeysWinCollision(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("High Score", "from table")
	m.Append("Business Name", "X")
	r := Record{Metadata: m, Summary: ScoreSummary{High: 7}}

	assert.Equal(t, []string{"Business Name", "Average Score", "High Score", "Total Inspections"}, r.Keys())
	v, ok := r.Value("High Score")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("Business Name", "Pho Bac")
	m.Append("Address", "1314 S Jackson St")
	m.Append("Address", "Seattle, WA 98144")
	r := Record{Metadata: m, Summary: ScoreSummary{Average: 6.5, High: 10, Count: 2}}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"Business Name":["Pho Bac"],"Address":["1314 S Jackson St","Seattle, WA 98144"],"Average Score":6.5,"High Score":10,"Total Inspections":2}`,
		string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Summary, back.Summary)
	assert.Equal(t, m.Keys(), back.Metadata.Keys())
	assert.Equal(t, "1314 S Jackson St Seattle, WA 98144", back.Address())
	assert.Equal(t, "Pho Bac", back.BusinessName())
}

func TestRecord_Text(t *testing.T) {
	t.Parallel()

	m := NewMetadata()
	m.Append("Business Name", "A")
	m.Append("Business Name", "B")
	r := Record{Metadata: m, Summary: ScoreSummary{Average: 2.5, High: 5, Count: 2}}

	assert.Equal(t, "A B", r.Text("Business Name"))
	assert.Equal(t, "2.5", r.Text("Average Score"))
	assert.Equal(t, "5", r.Text("High Score"))
	assert.Equal(t, "", r.Text("missing"))
}

func TestJoinValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", JoinValues(nil))
	assert.Equal(t, "", JoinValues([]string{"", " "}))
	assert.Equal(t, "a b", JoinValues([]string{"a", "", "b"}))
}

func TestRecord_JSONKeepsEmptyLabels(t *testing.T) {
	t.Parallel()

	data := []byte(`{"Business Name":["X"],"Phone":[],"Average Score":0,"High Score":0,"Total Inspections":0}`)

	var r Record
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, []string{"Business Name", "Phone"}, r.Metadata.Keys())
	assert.True(t, r.Metadata.Has("Phone"))
	assert.Equal(t, []string{}, r.Metadata.Get("Phone"))

	again, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"Phone":[]}`), &m))
	assert.Equal(t, r.Metadata.Keys()[1:], m.Keys())
	assert.Equal(t, []string{"Phone"}, m.Clone().Keys())
}
