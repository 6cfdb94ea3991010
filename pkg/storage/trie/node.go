package trie

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	xdr "github.com/rasky/go-xdr/xdr2"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the length of a node digest in bytes.
const DigestSize = blake2b.Size256

// Digest is the blake2b-256 hash of a node's XDR encoding. Nodes are stored
// under their digest, so equal subtrees are stored once.
type Digest [DigestSize]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the digest as a slice.
func (d Digest) Bytes() []byte {
	out := make([]byte, DigestSize)
	copy(out, d[:])
	return out
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// DigestFromBytes converts a slice into a Digest.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidDigest, len(b), DigestSize)
	}
	copy(d[:], b)
	return d, nil
}

// ParseDigest decodes a hex digest.
func ParseDigest(s string) (Digest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	return DigestFromBytes(b)
}

// NodeKind discriminates the node variants.
type NodeKind uint32

const (
	NodeLeaf NodeKind = iota + 1
	NodeBranch
)

func (k NodeKind) String() string {
	switch k {
	case NodeLeaf:
		return "leaf"
	case NodeBranch:
		return "branch"
	default:
		return fmt.Sprintf("NodeKind(%d)", uint32(k))
	}
}

// Pointer links a branch to the child stored under Digest for key byte Index.
type Pointer struct {
	Index  uint32
	Digest Digest
}

// Node is a trie node. A leaf carries Key and Value; a branch carries
// Children sorted by Index, one per distinct key byte at its depth.
type Node struct {
	Kind     NodeKind
	Key      []byte
	Value    []byte
	Children []Pointer
}

// NewLeaf returns a leaf node.
func NewLeaf(key, value []byte) *Node {
	return &Node{Kind: NodeLeaf, Key: key, Value: value}
}

// NewBranch returns a branch with the given children.
func NewBranch(children ...Pointer) *Node {
	sorted := append([]Pointer(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	return &Node{Kind: NodeBranch, Children: sorted}
}

// Child returns the child digest for key byte idx.
func (n *Node) Child(idx byte) (Digest, bool) {
	i := sort.Search(len(n.Children), func(i int) bool { return n.Children[i].Index >= uint32(idx) })
	if i < len(n.Children) && n.Children[i].Index == uint32(idx) {
		return n.Children[i].Digest, true
	}
	return Digest{}, false
}

// WithChild returns a copy of the branch with the child for idx set to d.
func (n *Node) WithChild(idx byte, d Digest) *Node {
	children := make([]Pointer, 0, len(n.Children)+1)
	inserted := false
	for _, p := range n.Children {
		switch {
		case p.Index == uint32(idx):
			children = append(children, Pointer{Index: p.Index, Digest: d})
			inserted = true
		case p.Index > uint32(idx) && !inserted:
			children = append(children, Pointer{Index: uint32(idx), Digest: d}, p)
			inserted = true
		default:
			children = append(children, p)
		}
	}
	if !inserted {
		children = append(children, Pointer{Index: uint32(idx), Digest: d})
	}
	return &Node{Kind: NodeBranch, Children: children}
}

// Encode returns the canonical XDR encoding of the node.
func (n *Node) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, n); err != nil {
		return nil, fmt.Errorf("failed to encode %s node: %w", n.Kind, err)
	}
	return buf.Bytes(), nil
}

// Hash encodes the node and returns its digest along with the encoding.
func (n *Node) Hash() (Digest, []byte, error) {
	data, err := n.Encode()
	if err != nil {
		return Digest{}, nil, err
	}
	return Digest(blake2b.Sum256(data)), data, nil
}

// DecodeNode parses an XDR-encoded node.
func DecodeNode(data []byte) (*Node, error) {
	var n Node
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptNode, err)
	}
	if n.Kind != NodeLeaf && n.Kind != NodeBranch {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrCorruptNode, n.Kind)
	}
	return &n, nil
}
