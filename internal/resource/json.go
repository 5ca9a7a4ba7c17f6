// json.go - Wire encoding of resources.
//
// {logic_ref, label_ref, quantity, value_ref, is_ephemeral, nonce, nk_commitment, rand_seed}
// Hashes are lowercase 0x hex; quantity is a JSON integer (a decimal string is also accepted).

package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

type resourceJSON struct {
	LogicRef     string          `json:"logic_ref"`
	LabelRef     string          `json:"label_ref"`
	Quantity     json.RawMessage `json:"quantity"`
	ValueRef     string          `json:"value_ref"`
	IsEphemeral  bool            `json:"is_ephemeral"`
	Nonce        string          `json:"nonce"`
	NkCommitment string          `json:"nk_commitment"`
	RandSeed     string          `json:"rand_seed"`
}

// MarshalJSON implements json.Marshaler.
func (r Resource) MarshalJSON() ([]byte, error) {
	q := "0"
	if r.Quantity != nil {
		q = r.Quantity.Dec()
	}
	return json.Marshal(resourceJSON{
		LogicRef:     r.LogicRef.Hex(),
		LabelRef:     r.LabelRef.Hex(),
		Quantity:     json.RawMessage(q),
		ValueRef:     r.ValueRef.Hex(),
		IsEphemeral:  r.IsEphemeral,
		Nonce:        r.Nonce.Hex(),
		NkCommitment: r.NkCommitment.Hex(),
		RandSeed:     r.RandSeed.Hex(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. Every hash field must decode to exactly 32 bytes.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw resourceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Resource
	var err error
	fields := []struct {
		name string
		src  string
		dst  *[32]byte
	}{
		{"logic_ref", raw.LogicRef, (*[32]byte)(&out.LogicRef)},
		{"label_ref", raw.LabelRef, (*[32]byte)(&out.LabelRef)},
		{"value_ref", raw.ValueRef, (*[32]byte)(&out.ValueRef)},
		{"nonce", raw.Nonce, (*[32]byte)(&out.Nonce)},
		{"nk_commitment", raw.NkCommitment, (*[32]byte)(&out.NkCommitment)},
		{"rand_seed", raw.RandSeed, (*[32]byte)(&out.RandSeed)},
	}
	for _, f := range fields {
		h, perr := ParseHash(f.name, f.src)
		if perr != nil {
			return perr
		}
		*f.dst = h
	}
	if out.Quantity, err = parseQuantity(raw.Quantity); err != nil {
		return err
	}
	out.IsEphemeral = raw.IsEphemeral
	*r = out
	return nil
}

func parseQuantity(raw json.RawMessage) (*uint256.Int, error) {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return nil, &MalformedFieldError{Field: "quantity", Want: 32}
	}
	s = strings.Trim(s, `"`)
	q, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, &MalformedFieldError{Field: "quantity", Want: 32, Got: -1, Err: fmt.Errorf("%q: %w", s, err)}
	}
	return q, nil
}
