package idgen

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates lexicographically sortable ULIDs. Used for
// messages and notifications so the id tie-break follows creation order.
type ULIDGenerator struct{}

func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

func (g *ULIDGenerator) Generate() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

func (g *ULIDGenerator) Validate(id string) (bool, string) {
	if len(id) != ulid.EncodedSize {
		return false, fmt.Sprintf("expected length %d, got %d", ulid.EncodedSize, len(id))
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return false, fmt.Sprintf("invalid ULID format: %v", err)
	}
	return true, ""
}
