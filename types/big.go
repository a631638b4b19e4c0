package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. Note that a nil pointer value marshals as the empty
// string.
type BigInt big.Int

// MarshalJSON implements the json.Marshaler interface.
func (i *BigInt) MarshalJSON() ([]byte, error) {
	if i == nil {
		return []byte(`""`), nil
	}
	return []byte(`"` + i.MathBigInt().String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	if len(data) == 0 {
		i.SetUint64(0)
		return nil
	}
	if _, ok := i.MathBigInt().SetString(string(data), 10); !ok {
		return fmt.Errorf("cannot parse %q as big integer", data)
	}
	return nil
}

// MarshalCBOR implements the cbor.Marshaler interface, encoding the number as
// its big-endian byte representation.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	if i == nil {
		return cbor.Marshal([]byte{})
	}
	return cbor.Marshal(i.MathBigInt().Bytes())
}

// UnmarshalCBOR implements the cbor.Unmarshaler interface.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	i.MathBigInt().SetBytes(b)
	return nil
}

// String returns the decimal representation of i.
func (i *BigInt) String() string {
	if i == nil {
		return ""
	}
	return i.MathBigInt().String()
}

// SetBytes interprets buf as big-endian unsigned integer.
func (i *BigInt) SetBytes(buf []byte) *BigInt {
	return (*BigInt)(i.MathBigInt().SetBytes(buf))
}

// SetUint64 sets i to v.
func (i *BigInt) SetUint64(v uint64) *BigInt {
	return (*BigInt)(i.MathBigInt().SetUint64(v))
}

// SetBigInt sets i to v.
func (i *BigInt) SetBigInt(v *big.Int) *BigInt {
	return (*BigInt)(i.MathBigInt().Set(v))
}

// Bytes returns the big-endian byte representation.
func (i *BigInt) Bytes() []byte {
	return i.MathBigInt().Bytes()
}

// Equal compares i and j for equality. A nil pointer equals nil only.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}

// MathBigInt converts b to a math/big *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}
