// Package util holds small helpers shared across packages.
package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID, optionally prefixed as "prefix_<uuid>".
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// ValidID reports whether id is a UUID, optionally carrying prefix.
func ValidID(prefix, id string) bool {
	if prefix != "" {
		var ok bool
		id, ok = strings.CutPrefix(id, prefix+"_")
		if !ok {
			return false
		}
	}
	_, err := uuid.Parse(id)
	return err == nil
}
