package entity

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// Kind tags the entity a reference points at.
type Kind string

const (
	KindProduct  Kind = "Product"
	KindCartItem Kind = "CartItem"
	KindCart     Kind = "Cart"
)

// Ref is a typed external reference: base64("<Kind>:<id>").
type Ref struct {
	Kind Kind
	ID   int64
}

func NewRef(kind Kind, id int64) Ref { return Ref{Kind: kind, ID: id} }

// String encodes the reference for the API boundary.
func (r Ref) String() string {
	return base64.StdEncoding.EncodeToString([]byte(string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)))
}

// ParseRef decodes s and checks that it references an entity of the expected kind.
// Any failure is reported as ok == false; callers decide which error to surface.
func ParseRef(s string, want Kind) (Ref, bool) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Ref{}, false
	}
	kind, pk, found := strings.Cut(string(raw), ":")
	if !found || Kind(kind) != want {
		return Ref{}, false
	}
	id, err := strconv.ParseInt(pk, 10, 64)
	if err != nil || id <= 0 {
		return Ref{}, false
	}
	return Ref{Kind: want, ID: id}, true
}

// DecodeRef is ParseRef with the boundary error attached: ITEM_NOT_FOUND for
// cart items, NOT_FOUND for everything else.
func DecodeRef(s string, want Kind) (Ref, error) {
	r, ok := ParseRef(s, want)
	if ok {
		return r, nil
	}
	if want == KindCartItem {
		return Ref{}, ItemNotFound(s)
	}
	return Ref{}, NotFound(want, s)
}
