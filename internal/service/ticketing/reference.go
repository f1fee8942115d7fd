package ticketing

import (
	"strings"

	"github.com/google/uuid"
)

// NewReference returns a ticket reference: a time-ordered UUIDv7 rendered as
// 32 upper-case hex characters. Uniqueness is enforced by the tickets table;
// collisions are retried by the generator.
func NewReference() string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}

	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", ""))
}
