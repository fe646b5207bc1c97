package idgen

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// KSUIDGenerator generates K-sortable ids for realtime connections.
type KSUIDGenerator struct{}

func NewKSUIDGenerator() *KSUIDGenerator {
	return &KSUIDGenerator{}
}

func (g *KSUIDGenerator) Generate() (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate KSUID: %w", err)
	}
	return id.String(), nil
}

func (g *KSUIDGenerator) Validate(id string) (bool, string) {
	if len(id) != 27 {
		return false, fmt.Sprintf("expected length 27, got %d", len(id))
	}
	if _, err := ksuid.Parse(id); err != nil {
		return false, fmt.Sprintf("invalid KSUID format: %v", err)
	}
	return true, ""
}
