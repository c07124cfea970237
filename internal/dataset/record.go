package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	labelKey       = "label"
	legacyLabelKey = "char"
)

// Record is one entry of the metadata index. It points at exactly one framed
// record in the container.
type Record struct {
	Hash      string `json:"hash" jsonschema:"required"`
	Label     string `json:"label"`
	Font      string `json:"font,omitempty"`
	SeekStart uint64 `json:"seek_start" jsonschema:"required"`
	SeekEnd   uint64 `json:"seek_end" jsonschema:"required"`

	// labelKey is the JSON key the label was read from; older datasets use
	// "char".
	labelKey string
	// extra holds keys this package does not know about so they survive a
	// rewrite of the metadata file.
	extra map[string]json.RawMessage
}

// Validate checks the record's own invariants. The range is checked against
// the container size by callers that know it.
func (r *Record) Validate() error {
	if r.Hash == "" {
		return errors.New("record hash is required")
	}
	if r.SeekStart >= r.SeekEnd {
		return fmt.Errorf("hash %q: seek_start %d must be below seek_end %d", r.Hash, r.SeekStart, r.SeekEnd)
	}
	return nil
}

// UnmarshalJSON accepts both "label" and the legacy "char" key.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Record{labelKey: labelKey}
	if _, ok := raw[labelKey]; !ok {
		if _, ok := raw[legacyLabelKey]; ok {
			r.labelKey = legacyLabelKey
		}
	}
	for key, v := range raw {
		var err error
		switch key {
		case "hash":
			err = json.Unmarshal(v, &r.Hash)
		case r.labelKey:
			err = json.Unmarshal(v, &r.Label)
		case "font":
			err = json.Unmarshal(v, &r.Font)
		case "seek_start":
			err = json.Unmarshal(v, &r.SeekStart)
		case "seek_end":
			err = json.Unmarshal(v, &r.SeekEnd)
		default:
			r.addExtra(key, v)
		}
		if err != nil {
			return fmt.Errorf("record key %q: %w", key, err)
		}
	}
	return nil
}

// MarshalJSON writes the known keys first, then unknown keys sorted by name.
func (r Record) MarshalJSON() ([]byte, error) {
	key := r.labelKey
	if key == "" {
		key = labelKey
	}
	var o objectWriter
	o.field("hash", r.Hash)
	o.field(key, r.Label)
	if r.Font != "" {
		o.field("font", r.Font)
	}
	o.field("seek_start", r.SeekStart)
	o.field("seek_end", r.SeekEnd)
	o.extras(r.extra)
	return o.bytes()
}

func (r *Record) addExtra(key string, v json.RawMessage) {
	if r.extra == nil {
		r.extra = map[string]json.RawMessage{}
	}
	r.extra[key] = v
}
