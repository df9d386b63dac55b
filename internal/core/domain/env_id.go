package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// GenerateEnvID creates a deterministic hash from a task's tools map
// (alias -> version spec, e.g. "go" -> "1.25.4"). KeyHasher folds this into
// a task's fingerprint so a toolchain bump invalidates the cache even when
// the task's own inputs are unchanged.
func GenerateEnvID(tools map[string]string) string {
	// Sort keys for deterministic ordering
	aliases := make([]string, 0, len(tools))
	for alias := range tools {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)

	// Build deterministic string
	var builder strings.Builder
	for _, alias := range aliases {
		spec := tools[alias]
		builder.WriteString(alias)
		builder.WriteString(":")
		builder.WriteString(spec)
		builder.WriteString(";")
	}

	// Hash the string
	hash := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}
