// Package ident handles store identifiers and the deterministic ids given to catalog and
// synthesized records.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// New returns a fresh store identifier.
func New() string {
	return primitive.NewObjectID().Hex()
}

// Valid reports whether id has the store identifier format (24 hex characters).
func Valid(id string) bool {
	return primitive.IsValidObjectID(id)
}

// Parse converts id to an ObjectID, failing when the format is wrong.
func Parse(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid store identifier %q: %w", id, err)
	}
	return oid, nil
}

// Stable derives a store identifier from parts. The same parts always yield the same id,
// so re-importing a catalog entry updates it instead of duplicating it.
func Stable(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:12])
}

// Synthetic returns prefix followed by a non-negative number hashed from seed, for records that
// are built in place of a missing stored one.
func Synthetic(prefix, seed string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return fmt.Sprintf("%s%d", prefix, h.Sum64()>>1)
}
