package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

// Metadata is the content of a dataset's metadata.json.
type Metadata struct {
	Source          string   `json:"source" jsonschema:"required,description=Where the glyphs were rendered from"`
	Content         string   `json:"content" jsonschema:"required,description=What the dataset contains"`
	Labels          []string `json:"labels,omitempty" jsonschema:"description=Labels present in the dataset"`
	Records         []Record `json:"records" jsonschema:"required"`
	InvalidRecords  []string `json:"invalid_records" jsonschema:"uniqueItems=true"`
	InvalidFonts    []string `json:"invalid_fonts" jsonschema:"uniqueItems=true"`
	CompletedLabels []string `json:"completed_labels" jsonschema:"uniqueItems=true"`

	extra map[string]json.RawMessage
}

var knownMetadataKeys = map[string]bool{
	"source": true, "content": true, "labels": true, "records": true,
	"invalid_records": true, "invalid_fonts": true, "completed_labels": true,
}

// Schema returns the JSON Schema of the metadata document.
//
// It drives the structural checks done by ParseMetadata and is served as is
// by the HTTP API.
func Schema() *jsonschema.Schema {
	return metadataSchema()
}

var metadataSchema = sync.OnceValue(func() *jsonschema.Schema {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true, DoNotReference: true}
	s := r.Reflect(&Metadata{})
	s.Title = "Dataset metadata"
	return s
})

// recordSchema returns the schema of one element of "records".
func recordSchema() *jsonschema.Schema {
	s := metadataSchema()
	if s.Properties == nil {
		return nil
	}
	p, ok := s.Properties.Get("records")
	if !ok || p.Items == nil {
		return nil
	}
	return p.Items
}

// ParseMetadata decodes and checks a metadata document.
//
// Missing required keys are errors. Missing flag sets load as empty sets and
// duplicate members are dropped, keeping the first occurrence.
func ParseMetadata(b []byte) (*Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("metadata is not a JSON object: %w", err)
	}
	if err := requireKeys(raw, metadataSchema().Required, "metadata"); err != nil {
		return nil, err
	}
	var rawRecords []map[string]json.RawMessage
	if err := json.Unmarshal(raw["records"], &rawRecords); err != nil {
		return nil, fmt.Errorf("metadata key \"records\" must be a list of objects: %w", err)
	}
	var required []string
	if rs := recordSchema(); rs != nil {
		required = rs.Required
	}
	for i, rec := range rawRecords {
		if err := requireKeys(rec, required, fmt.Sprintf("record #%d", i)); err != nil {
			return nil, err
		}
		_, hasLabel := rec[labelKey]
		_, hasChar := rec[legacyLabelKey]
		if !hasLabel && !hasChar {
			return nil, fmt.Errorf("record #%d: missing required key %q", i, labelKey)
		}
	}

	m := &Metadata{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	for i := range m.Records {
		if err := m.Records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record #%d: %w", i, err)
		}
	}
	for k, v := range raw {
		if !knownMetadataKeys[k] {
			if m.extra == nil {
				m.extra = map[string]json.RawMessage{}
			}
			m.extra[k] = v
		}
	}
	m.InvalidRecords = dedup(m.InvalidRecords)
	m.InvalidFonts = dedup(m.InvalidFonts)
	m.CompletedLabels = dedup(m.CompletedLabels)
	return m, nil
}

// MarshalJSON writes the known keys in a fixed order followed by the keys
// that were present in the file but are unknown to this package.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var o objectWriter
	o.field("source", m.Source)
	o.field("content", m.Content)
	if m.Labels != nil {
		o.field("labels", m.Labels)
	}
	o.field("records", nonNil(m.Records))
	o.field("invalid_records", nonNil(m.InvalidRecords))
	o.field("invalid_fonts", nonNil(m.InvalidFonts))
	o.field("completed_labels", nonNil(m.CompletedLabels))
	o.extras(m.extra)
	return o.bytes()
}

// Encode returns the on-disk form: indented JSON with a trailing newline.
func (m *Metadata) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return append(b, '\n'), nil
}

func requireKeys(obj map[string]json.RawMessage, keys []string, what string) error {
	var errs []error
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			errs = append(errs, fmt.Errorf("%s: missing required key %q", what, k))
		}
	}
	return errors.Join(errs...)
}

func dedup(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
