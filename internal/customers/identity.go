package customers

import (
	"github.com/google/uuid"
)

// AnonymousID is the shared identity for requests that carry no customer header.
// Guest carts and orders pool under this row, which is seeded by migrations.
var AnonymousID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Resolve maps a raw header value to a customer identifier. Blank or malformed
// values fall back to the anonymous identity rather than failing the request.
func Resolve(raw string) uuid.UUID {
	if raw == "" {
		return AnonymousID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return AnonymousID
	}
	return id
}

// IsAnonymous reports whether the identifier is the shared guest identity.
func IsAnonymous(id uuid.UUID) bool {
	return id == AnonymousID
}
