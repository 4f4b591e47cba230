package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	PinnedSetID ID
	WorkspaceID ID
)

// String conversions for domain IDs
func (id PinnedSetID) String() string { return ID(id).String() }
func (id WorkspaceID) String() string { return ID(id).String() }

// NewPinnedSetID creates a time-ordered pinned set identifier
func NewPinnedSetID() PinnedSetID {
	return PinnedSetID(NewID())
}

// NewWorkspaceID creates a short, cookie-safe workspace identifier
func NewWorkspaceID() WorkspaceID {
	return WorkspaceID(xid.New().String())
}

// ParsePinnedSetID parses a string into PinnedSetID
func ParsePinnedSetID(s string) (PinnedSetID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("pinned set ID", "cannot be empty")
	}
	return PinnedSetID(s), nil
}

// ParseWorkspaceID parses a string into WorkspaceID. Workspace IDs double as
// storage namespaces, so only URL- and cookie-safe characters are accepted.
func ParseWorkspaceID(s string) (WorkspaceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("workspace ID", "cannot be empty")
	}
	if len(s) > 64 {
		return "", NewValidationError("workspace ID", fmt.Sprintf("too long: %d characters", len(s)))
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", NewValidationError("workspace ID", fmt.Sprintf("invalid character %q", r))
		}
	}
	return WorkspaceID(s), nil
}
