package codec

import (
	"errors"
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Proto stores a record in the protobuf wire format as the message
//
//	message Record { repeated Entry fields = 1; }
//	message Entry  { string name = 1; bytes value = 2; }
//
// Only byte and string values can be encoded; they all decode as bytes.
// Unknown field numbers are skipped so the message can grow.
type Proto struct{}

const (
	protoFieldEntry protowire.Number = 1
	protoEntryName  protowire.Number = 1
	protoEntryValue protowire.Number = 2
)

var errProtoEntryName = errors.New("entry without a name")

// Tag implements Codec.
func (Proto) Tag() byte { return TagProto }

// Name implements Codec.
func (Proto) Name() string { return "proto" }

// Encode implements Codec. Entries are written in name order.
func (Proto) Encode(f Fields) ([]byte, error) {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	var out, entry []byte
	for _, n := range names {
		var value []byte
		switch t := f[n].(type) {
		case []byte:
			value = t
		case string:
			value = []byte(t)
		default:
			return nil, fmt.Errorf("field %q: unsupported type %T", n, f[n])
		}
		entry = entry[:0]
		entry = protowire.AppendTag(entry, protoEntryName, protowire.BytesType)
		entry = protowire.AppendString(entry, n)
		entry = protowire.AppendTag(entry, protoEntryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, value)
		out = protowire.AppendTag(out, protoFieldEntry, protowire.BytesType)
		out = protowire.AppendBytes(out, entry)
	}
	return out, nil
}

// Decode implements Codec.
func (Proto) Decode(payload []byte) (Fields, error) {
	f := Fields{}
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		payload = payload[n:]
		if num != protoFieldEntry || typ != protowire.BytesType {
			if n = protowire.ConsumeFieldValue(num, typ, payload); n < 0 {
				return nil, protowire.ParseError(n)
			}
			payload = payload[n:]
			continue
		}
		entry, n := protowire.ConsumeBytes(payload)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		payload = payload[n:]
		name, value, err := decodeProtoEntry(entry)
		if err != nil {
			return nil, err
		}
		f[name] = value
	}
	return f, nil
}

func decodeProtoEntry(b []byte) (string, []byte, error) {
	var name string
	value := []byte{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == protoEntryName && typ == protowire.BytesType:
			name, n = protowire.ConsumeString(b)
		case num == protoEntryValue && typ == protowire.BytesType:
			value, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return "", nil, protowire.ParseError(n)
		}
		b = b[n:]
	}
	if name == "" {
		return "", nil, errProtoEntryName
	}
	return name, value, nil
}
