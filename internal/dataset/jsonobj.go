package dataset

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// objectWriter builds a JSON object with a stable key order. encoding/json
// sorts map keys and follows struct order, which cannot interleave known
// fields with preserved unknown ones.
type objectWriter struct {
	buf bytes.Buffer
	err error
	n   int
}

func (o *objectWriter) field(key string, v any) {
	if o.err != nil {
		return
	}
	var vb []byte
	if raw, ok := v.(json.RawMessage); ok {
		vb = raw
	} else if vb, o.err = json.Marshal(v); o.err != nil {
		return
	}
	if o.n == 0 {
		o.buf.WriteByte('{')
	} else {
		o.buf.WriteByte(',')
	}
	o.n++
	kb, _ := json.Marshal(key)
	o.buf.Write(kb)
	o.buf.WriteByte(':')
	o.buf.Write(vb)
}

// extras writes the preserved keys in sorted order.
func (o *objectWriter) extras(m map[string]json.RawMessage) {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		o.field(k, m[k])
	}
}

func (o *objectWriter) bytes() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.n == 0 {
		return []byte("{}"), nil
	}
	o.buf.WriteByte('}')
	return o.buf.Bytes(), nil
}
