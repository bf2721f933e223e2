package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding: the same dataset always snapshots to identical bytes, so
// snapshots can be compared and cached by digest.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR and
// ignore unknown fields for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Snapshot encodes a container to CBOR.
func Snapshot(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Restore decodes a CBOR snapshot into v.
func Restore(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Clone deep-copies a container by round-tripping it through the
// snapshot codec. Ownership bookkeeping and function-valued fields are
// deliberately excluded from snapshots, so the clone starts with zero
// bookkeeping.
func Clone[T any](src *T) (*T, error) {
	data, err := Snapshot(src)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := Restore(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
