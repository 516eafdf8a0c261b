// Package id generates short, prefixed identifiers for runs and stored
// templates. An ID like "run_4fQ8ZkPq2nXw" is a type prefix, an
// underscore, and base58-encoded random bytes. Base58 keeps them
// double-click selectable and free of lookalike characters.
package id

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// Prefixes for the identifier namespaces in use.
const (
	PrefixRun      = "run"
	PrefixTemplate = "tpl"
)

// payloadLen is the number of random bytes encoded into each ID.
// 9 bytes gives 72 bits, enough that collisions are not a practical
// concern for a local toolkit, while keeping IDs short.
const payloadLen = 9

// New returns a fresh identifier with the given prefix.
func New(prefix string) string {
	u := uuid.New()
	return prefix + "_" + base58.Encode(u[:payloadLen])
}

// NewRun returns a fresh run identifier.
func NewRun() string {
	return New(PrefixRun)
}

// NewTemplate returns a fresh template identifier.
func NewTemplate() string {
	return New(PrefixTemplate)
}

// HasPrefix reports whether s carries the given ID prefix.
func HasPrefix(s, prefix string) bool {
	return strings.HasPrefix(s, prefix+"_") && len(s) > len(prefix)+1
}
