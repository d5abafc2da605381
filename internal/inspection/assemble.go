package inspection

import "github.com/sells-group/inspection-cli/internal/model"

// AssembleRecord merges listing metadata and its score summary into a
// Record. The metadata is copied. When a metadata label collides with a
// score key, the score summary wins in the flattened record.
func AssembleRecord(meta *model.Metadata, summary model.ScoreSummary) model.Record {
	return model.Record{
		Metadata: meta.Clone(),
		Summary:  summary,
	}
}
