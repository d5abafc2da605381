package store

import (
	"github.com/sells-group/inspection-cli/internal/model"
)

func sampleRecords() []model.Record {
	a := model.NewMetadata()
	a.Append(model.KeyBusinessName, "PHO BAC")
	a.Append(model.KeyAddress, "1314 S JACKSON ST")
	a.Append(model.KeyAddress, "Seattle, WA 98144")

	b := model.NewMetadata()
	b.Append(model.KeyBusinessName, "CAFE SOLSTICE")

	return []model.Record{
		{Metadata: a, Summary: model.ScoreSummary{Average: 5, High: 10, Count: 2}},
		{Metadata: b, Summary: model.ScoreSummary{}},
	}
}

func sampleFeatures() []*model.Feature {
	return []*model.Feature{
		{
			Location:   &model.Location{Latitude: 47.5991, Longitude: -122.3149},
			Properties: map[string]any{model.KeyBusinessName: "PHO BAC", model.KeyAddress: "1314 S JACKSON ST"},
		},
		nil,
		{Properties: map[string]any{model.KeyBusinessName: "UNMATCHED"}},
	}
}
