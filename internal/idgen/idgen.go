package idgen

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind tags the entity an identifier is issued for. Its value is the id prefix.
type Kind string

const (
	KindWallet      Kind = "WLT"
	KindTransaction Kind = "TXN"
	KindOwner       Kind = "USR"
)

// Generator issues identifiers that never repeat within the process.
type Generator interface {
	New(kind Kind) string
}

// UUID prefixes a random v4 UUID with the kind tag, e.g. "TXN-1b4e28ba-...".
type UUID struct{}

// NewUUID returns the default generator.
func NewUUID() UUID {
	return UUID{}
}

// New returns a fresh identifier for kind.
func (UUID) New(kind Kind) string {
	return string(kind) + "-" + uuid.NewString()
}

// Sequence issues predictable identifiers from a single process-wide counter.
// Intended for tests that assert on ids.
type Sequence struct {
	next atomic.Uint64
}

// NewSequence returns a counter-backed generator starting at 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// New returns kind plus the next counter value, e.g. "WLT-000001".
func (s *Sequence) New(kind Kind) string {
	return fmt.Sprintf("%s-%06d", kind, s.next.Add(1))
}

// Func adapts a plain function to Generator.
type Func func(kind Kind) string

// New calls f.
func (f Func) New(kind Kind) string {
	return f(kind)
}
