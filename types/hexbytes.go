package types

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// HexBytes is a []byte which marshals JSON as a 0x-prefixed hexadecimal
// string. The "0x" prefix is optional when unmarshaling.
type HexBytes []byte

// String returns the 0x-prefixed hexadecimal representation of b.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// BigInt returns b interpreted as a big-endian unsigned integer.
func (b HexBytes) BigInt() *BigInt {
	return new(BigInt).SetBytes(b)
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	data = data[1 : len(data)-1]
	// strip the optional "0x" prefix
	if len(data) >= 2 && data[0] == '0' && (data[1] == 'x' || data[1] == 'X') {
		data = data[2:]
	}
	decLen := hex.DecodedLen(len(data))
	if cap(*b) < decLen {
		*b = make([]byte, decLen)
	}
	if _, err := hex.Decode(*b, data); err != nil {
		return err
	}
	return nil
}

// SetString decodes a hexadecimal string, with or without the 0x prefix.
func (b *HexBytes) SetString(s string) error {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	dec, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = dec
	return nil
}

// SetBigInt sets b to the big-endian byte representation of i.
func (b *HexBytes) SetBigInt(i *big.Int) *HexBytes {
	*b = i.Bytes()
	return b
}
