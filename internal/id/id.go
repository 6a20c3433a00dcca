// Package id generates run identifiers and stable content-derived identifiers.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// groupNamespace scopes name-based UUIDs derived from group keys.
var groupNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bandreports:group"))

// Generate creates a prefixed random ID using NanoID, e.g. "run-V1StGXR8_Z5jdHi6B-myT".
// Used for run records, where uniqueness matters and stability does not.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Stable returns a name-based (v5) UUID for key. The same key always yields the
// same ID, across runs and regardless of where the key appears in the input.
func Stable(key string) string {
	return uuid.NewSHA1(groupNamespace, []byte(key)).String()
}
