package kvstore

import (
	"context"

	"gocalc/domain/core"
	"gocalc/domain/workspace"
	"gocalc/internal"
	"gocalc/internal/errors"
)

// StateRepository maps workspace state onto three keys per namespace
type StateRepository struct {
	store  *Store
	logger *internal.Logger
}

// NewStateRepository creates a state repository over store
func NewStateRepository(store *Store, logger *internal.Logger) *StateRepository {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &StateRepository{store: store, logger: logger}
}

// Load returns the stored state, or an empty state when nothing is stored.
// Malformed values are treated as absent.
func (r *StateRepository) Load(ctx context.Context, id core.WorkspaceID) (*workspace.State, error) {
	values, err := r.store.GetAll(ctx, id.String())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load workspace %s", id)
	}

	state := workspace.NewState()
	if expr, ok := values[KeyLastExpression]; ok {
		state.LastExpression = expr
	}
	if raw, ok := values[KeyPinnedSets]; ok {
		sets, skipped := DecodePinnedSets(raw)
		if skipped > 0 {
			r.logger.Warn("workspace %s: skipped %d malformed pinned set records", id, skipped)
		}
		state.PinnedSets = sets
	}
	if raw, ok := values[KeyViewPreferences]; ok {
		state.View = DecodeViewPreferences(raw)
	}

	if repaired := state.Normalize(); repaired > 0 {
		r.logger.Info("workspace %s: repaired %d pinned sets", id, repaired)
		if err := r.Save(ctx, id, state); err != nil {
			return nil, err
		}
	}
	r.logger.Debug("loaded workspace %s: %d pinned sets", id, len(state.PinnedSets))
	return state, nil
}

// Save writes the whole state atomically. An empty expression removes the
// lastExpression key.
func (r *StateRepository) Save(ctx context.Context, id core.WorkspaceID, state *workspace.State) error {
	pinned, err := EncodePinnedSets(state.PinnedSets)
	if err != nil {
		return errors.Wrap(err, "failed to encode pinned sets")
	}
	view, err := EncodeViewPreferences(state.View)
	if err != nil {
		return errors.Wrap(err, "failed to encode view preferences")
	}

	mutations := []Mutation{
		{Key: KeyPinnedSets, Value: &pinned},
		{Key: KeyViewPreferences, Value: &view},
	}
	if state.LastExpression == "" {
		mutations = append(mutations, Mutation{Key: KeyLastExpression})
	} else {
		expr := state.LastExpression
		mutations = append(mutations, Mutation{Key: KeyLastExpression, Value: &expr})
	}

	if err := r.store.Apply(ctx, id.String(), mutations...); err != nil {
		return errors.Wrapf(err, "failed to save workspace %s", id)
	}
	r.logger.Trace("saved workspace %s", id)
	return nil
}

// List returns the IDs of stored workspaces
func (r *StateRepository) List(ctx context.Context) ([]core.WorkspaceID, error) {
	namespaces, err := r.store.Namespaces(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]core.WorkspaceID, len(namespaces))
	for i, ns := range namespaces {
		ids[i] = core.WorkspaceID(ns)
	}
	return ids, nil
}

// Delete removes a workspace and everything stored under it
func (r *StateRepository) Delete(ctx context.Context, id core.WorkspaceID) error {
	return r.store.DeleteNamespace(ctx, id.String())
}
