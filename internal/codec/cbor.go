package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2) so the same
// fields always produce the same bytes, and therefore the same record hash.
var encMode cbor.EncMode

// decMode decodes any-typed maps as map[string]any instead of the CBOR
// default map[interface{}]interface{}.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBOR stores a record as one CBOR map. Byte slices round-trip as CBOR byte
// strings, so binary fields such as PNG images need no extra encoding.
type CBOR struct{}

// Tag implements Codec.
func (CBOR) Tag() byte { return TagCBOR }

// Name implements Codec.
func (CBOR) Name() string { return "cbor" }

// Encode implements Codec.
func (CBOR) Encode(f Fields) ([]byte, error) {
	return encMode.Marshal(map[string]any(f))
}

// Decode implements Codec.
func (CBOR) Decode(payload []byte) (Fields, error) {
	var m map[string]any
	if err := decMode.Unmarshal(payload, &m); err != nil {
		return nil, err
	}
	return Fields(m), nil
}
