// Package idgen provides string identifier generators for persisted and
// transient entities.
package idgen

import (
	"fmt"
	"strings"
)

// Kind names an identifier scheme.
type Kind string

const (
	KindULID   Kind = "ulid"
	KindKSUID  Kind = "ksuid"
	KindUUID   Kind = "uuid"
	KindNanoID Kind = "nanoid"
	KindCUID2  Kind = "cuid2"
)

// Generator creates and validates identifiers of a single scheme.
type Generator interface {
	Generate() (string, error)
	Validate(id string) (bool, string) // (valid, reason)
}

// New returns the generator for kind using default parameters.
func New(kind string) (Generator, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindULID:
		return NewULIDGenerator(), nil
	case KindKSUID:
		return NewKSUIDGenerator(), nil
	case KindUUID:
		return NewUUIDGenerator(), nil
	case KindNanoID:
		return NewNanoIDGenerator(DefaultNanoIDSize, DefaultNanoIDAlphabet)
	case KindCUID2:
		return NewCUID2Generator(DefaultCUID2Length)
	default:
		return nil, fmt.Errorf("unsupported id generator: %q", kind)
	}
}

// MustNew is New for static configuration; it panics on an unknown kind.
func MustNew(kind string) Generator {
	g, err := New(kind)
	if err != nil {
		panic(err)
	}
	return g
}
