package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/inspection-cli/internal/model"
)

// YAMLWriter writes the records as a YAML sequence, keeping key order.
type YAMLWriter struct{}

func (YAMLWriter) Write(w io.Writer, records []model.Record) error {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, r := range records {
		seq.Content = append(seq.Content, recordNode(r))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: flush yaml")
}

func recordNode(r model.Record) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.Keys() {
		v, _ := r.Value(k)
		m.Content = append(m.Content, scalar("!!str", k), valueNode(v))
	}
	return m
}

func valueNode(v any) *yaml.Node {
	switch t := v.(type) {
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, s := range t {
			seq.Content = append(seq.Content, scalar("!!str", s))
		}
		return seq
	case int:
		return scalar("!!int", strconv.Itoa(t))
	case float64:
		return scalar("!!float", strconv.FormatFloat(t, 'f', -1, 64))
	default:
		return scalar("!!null", "null")
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
