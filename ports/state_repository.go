package ports

import (
	"context"

	"gocalc/domain/core"
	"gocalc/domain/workspace"
)

// StateRepository persists workspace state. Load never fails on malformed
// stored data; it returns whatever can be recovered.
type StateRepository interface {
	// Load returns the stored state, or an empty state for an unknown workspace
	Load(ctx context.Context, id core.WorkspaceID) (*workspace.State, error)

	// Save replaces the stored state
	Save(ctx context.Context, id core.WorkspaceID, state *workspace.State) error

	// List returns the stored workspace IDs
	List(ctx context.Context) ([]core.WorkspaceID, error)

	// Delete removes a workspace
	Delete(ctx context.Context, id core.WorkspaceID) error
}
