package globalstate

import (
	"bytes"
	"encoding/hex"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// AddressSize is the length of an account address.
const AddressSize = 20

// Address identifies an account.
type Address [AddressSize]byte

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// SeedAddress is the account seeded into a fresh store: twenty '0' bytes.
var SeedAddress = func() Address {
	var a Address
	for i := range a {
		a[i] = 48
	}
	return a
}()

// KeyTag discriminates key kinds.
type KeyTag uint32

const (
	KeyAccount KeyTag = iota + 1
	KeyHash
	KeyURef
)

func (t KeyTag) String() string {
	switch t {
	case KeyAccount:
		return "account"
	case KeyHash:
		return "hash"
	case KeyURef:
		return "uref"
	default:
		return fmt.Sprintf("KeyTag(%d)", uint32(t))
	}
}

// KeyIDSize is the length of a key identifier.
const KeyIDSize = 32

// KeySize is the length of an encoded key: one tag byte plus the identifier.
// Every trie key has this length, so no key is a prefix of another.
const KeySize = 1 + KeyIDSize

// Key addresses a value in global state.
type Key struct {
	Tag KeyTag
	ID  [KeyIDSize]byte
}

// AccountKey returns the key of the account at addr.
func AccountKey(addr Address) Key {
	k := Key{Tag: KeyAccount}
	copy(k.ID[:], addr[:])
	return k
}

// HashKey returns a key addressing a contract hash.
func HashKey(id [KeyIDSize]byte) Key {
	return Key{Tag: KeyHash, ID: id}
}

// URefKey returns an unforgeable reference key.
func URefKey(id [KeyIDSize]byte) Key {
	return Key{Tag: KeyURef, ID: id}
}

// Validate reports whether k carries a known tag.
func (k Key) Validate() error {
	if k.Tag < KeyAccount || k.Tag > KeyURef {
		return fmt.Errorf("%w: unknown tag %d", ErrInvalidKey, uint32(k.Tag))
	}
	return nil
}

// Bytes returns the trie key for k. The tag must be valid.
func (k Key) Bytes() []byte {
	out := make([]byte, 0, KeySize)
	out = append(out, byte(k.Tag))
	return append(out, k.ID[:]...)
}

func (k Key) String() string {
	return k.Tag.String() + "-" + hex.EncodeToString(k.ID[:])
}

// ParseKey decodes a trie key.
func ParseKey(b []byte) (Key, error) {
	if len(b) != KeySize {
		return Key{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(b), KeySize)
	}
	k := Key{Tag: KeyTag(b[0])}
	if err := k.Validate(); err != nil {
		return Key{}, err
	}
	copy(k.ID[:], b[1:])
	return k, nil
}

// NamedKey binds a human readable name to a key inside an account.
type NamedKey struct {
	Name string
	Key  Key
}

// Account is the state stored under an account key.
type Account struct {
	PublicKey [KeyIDSize]byte
	Nonce     uint64
	NamedKeys []NamedKey
}

// Lookup returns the key bound to name.
func (a *Account) Lookup(name string) (Key, bool) {
	for _, nk := range a.NamedKeys {
		if nk.Name == name {
			return nk.Key, true
		}
	}
	return Key{}, false
}

// ValueKind discriminates stored values.
type ValueKind uint32

const (
	ValueAccount ValueKind = iota + 1
	ValueBytes
	ValueUint64
	ValueString
)

func (k ValueKind) String() string {
	switch k {
	case ValueAccount:
		return "account"
	case ValueBytes:
		return "bytes"
	case ValueUint64:
		return "uint64"
	case ValueString:
		return "string"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint32(k))
	}
}

// Value is a tagged union; only the field matching Kind is meaningful.
type Value struct {
	Kind    ValueKind
	Account Account
	Bytes   []byte
	Uint64  uint64
	String  string
}

// AccountValue wraps an account.
func AccountValue(a Account) Value {
	return Value{Kind: ValueAccount, Account: a}
}

// BytesValue wraps raw bytes.
func BytesValue(b []byte) Value {
	return Value{Kind: ValueBytes, Bytes: b}
}

// Uint64Value wraps an integer.
func Uint64Value(n uint64) Value {
	return Value{Kind: ValueUint64, Uint64: n}
}

// StringValue wraps a string.
func StringValue(s string) Value {
	return Value{Kind: ValueString, String: s}
}

// Encode returns the XDR encoding of v.
func (v Value) Encode() ([]byte, error) {
	if v.Kind < ValueAccount || v.Kind > ValueString {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidValue, v.Kind)
	}
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &v); err != nil {
		return nil, fmt.Errorf("failed to encode %s value: %w", v.Kind, err)
	}
	return buf.Bytes(), nil
}

// DecodeValue parses an XDR-encoded value.
func DecodeValue(data []byte) (Value, error) {
	var v Value
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &v); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if v.Kind < ValueAccount || v.Kind > ValueString {
		return Value{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidValue, v.Kind)
	}
	return v, nil
}

// Pair is a key with its value.
type Pair struct {
	Key   Key
	Value Value
}

// Transform is a single write applied by Commit.
type Transform = Pair

// MockedAccount returns the genesis pairs for a fresh store: one account at
// addr with nonce zero and no named keys.
func MockedAccount(addr Address) []Pair {
	var pub [KeyIDSize]byte
	copy(pub[:], addr[:])
	return []Pair{{
		Key:   AccountKey(addr),
		Value: AccountValue(Account{PublicKey: pub}),
	}}
}
