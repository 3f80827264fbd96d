// Package token provides identifier generation as an injected capability,
// keeping the codec and merge layers deterministic under test.
package token

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces short opaque object codes.
type Generator interface {
	NewCode() string
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// codeLength matches the short tokens the annotation UI displays inline.
const codeLength = 8

// Rand generates random codes from a lowercase alphanumeric alphabet.
type Rand struct{}

// NewRand returns a crypto/rand backed generator.
func NewRand() *Rand {
	return &Rand{}
}

// NewCode returns a new random 8-character code.
func (r *Rand) NewCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a uuid-derived code rather than panic mid-save.
		return uuid.NewString()[:codeLength]
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// Sequence generates predictable codes ("obj-1", "obj-2", ...) for tests.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence returns a deterministic generator with the given prefix.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewCode returns the next code in the sequence.
func (s *Sequence) NewCode() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}

// NewVideoID returns a fresh identifier for an uploaded video.
func NewVideoID() string {
	return uuid.NewString()
}
