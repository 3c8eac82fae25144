// Package validation provides input validation for IDs that arrive from
// editor hooks or git before they reach logs or the pending store.
// This package has no dependencies to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// pathSafeRegex matches alphanumeric characters, underscores, and hyphens only.
var pathSafeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// shaRegex matches abbreviated or full hex object names.
var shaRegex = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// ValidateRunID validates that a run ID doesn't contain path separators.
func ValidateRunID(id string) error {
	if id == "" {
		return errors.New("run ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid run ID %q: contains path separators", id)
	}
	return nil
}

// ValidateToolUseID validates a provider tool-call identifier.
// Tool use IDs can be UUIDs or prefixed identifiers like "toolu_xxx".
func ValidateToolUseID(id string) error {
	if id == "" {
		return nil // optional
	}
	if !pathSafeRegex.MatchString(id) {
		return fmt.Errorf("invalid tool use ID %q: must be alphanumeric with underscores/hyphens only", id)
	}
	return nil
}

// ValidateCommitSHA validates a hex object name as printed by git.
func ValidateCommitSHA(sha string) error {
	if !shaRegex.MatchString(sha) {
		return fmt.Errorf("invalid commit SHA %q", sha)
	}
	return nil
}
