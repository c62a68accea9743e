// ABOUTME: ULID generation for scene, function, and event IDs.
// ABOUTME: IDs are time-ordered to the millisecond; ties within a millisecond are random.
package core

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// NewULID generates a new ULID using crypto/rand entropy.
func NewULID() ulid.ULID {
	return ulid.MustNew(ulid.Now(), rand.Reader)
}
