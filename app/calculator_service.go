package app

import (
	"context"
	"io"
	"sync"

	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/numberset"
	"gocalc/domain/stats"
	"gocalc/domain/workspace"
	"gocalc/internal"
	"gocalc/internal/errors"
	"gocalc/ports"
)

// CalculatorService runs every user action as load -> mutate -> save
type CalculatorService struct {
	repo   ports.StateRepository
	colors workspace.ColorFunc
	logger *internal.Logger

	// mu serialises actions so concurrent requests cannot interleave a
	// load/save pair and drop each other's edits.
	mu sync.Mutex
}

// ParseResult is the stateless answer for one expression
type ParseResult struct {
	Expression string           `json:"expression"`
	Numbers    []float64        `json:"numbers"`
	Formatted  string           `json:"formatted"`
	Statistics stats.Statistics `json:"statistics"`
}

// Snapshot is the state plus everything derived from it, ready to render
type Snapshot struct {
	Workspace      core.WorkspaceID          `json:"workspace"`
	LastExpression string                    `json:"last_expression"`
	Numbers        []numberset.Entry         `json:"numbers"`
	Statistics     stats.Statistics          `json:"statistics"`
	PinnedSets     []workspace.PinnedSet     `json:"pinned_sets"`
	Totals         stats.Statistics          `json:"totals"`
	View           workspace.ViewPreferences `json:"view"`
	Chart          chart.Data                `json:"chart"`
}

// ViewUpdate changes display toggles; nil fields are left alone
type ViewUpdate struct {
	ChartType  *chart.Type `json:"chart_type,omitempty"`
	Cumulative *bool       `json:"cumulative,omitempty"`
}

// PinnedSetUpdate edits a pinned set; nil fields are left alone
type PinnedSetUpdate struct {
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`
	RandomColor bool    `json:"random_color,omitempty"` // overrides Color
	Expression  *string `json:"expression,omitempty"`
}

// NewCalculatorService creates a calculator service
func NewCalculatorService(repo ports.StateRepository, logger *internal.Logger) *CalculatorService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &CalculatorService{
		repo:   repo,
		colors: workspace.RandomColor,
		logger: logger.With("calculator"),
	}
}

// WithColorFunc replaces the color generator, e.g. for deterministic tests
func (s *CalculatorService) WithColorFunc(fn workspace.ColorFunc) *CalculatorService {
	s.colors = fn
	return s
}

// Parse tokenizes an expression and computes its statistics without touching state
func (s *CalculatorService) Parse(expr string) ParseResult {
	numbers := numberset.FromExpression(expr)
	return ParseResult{
		Expression: expr,
		Numbers:    numbers.Values(),
		Formatted:  numbers.Expression(),
		Statistics: numbers.Stats(),
	}
}

// State returns the current snapshot of a workspace
func (s *CalculatorService) State(ctx context.Context, ws core.WorkspaceID) (*Snapshot, error) {
	state, err := s.repo.Load(ctx, ws)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load workspace %s", ws)
	}
	return NewSnapshot(ws, state), nil
}

// Export writes the workspace through exporter
func (s *CalculatorService) Export(ctx context.Context, ws core.WorkspaceID, exporter ports.StateExporter, w io.Writer) error {
	state, err := s.repo.Load(ctx, ws)
	if err != nil {
		return errors.Wrapf(err, "failed to load workspace %s", ws)
	}
	if err := exporter.Export(w, state); err != nil {
		return errors.Wrapf(err, "failed to export workspace %s", ws)
	}
	return nil
}

// Workspaces lists stored workspaces
func (s *CalculatorService) Workspaces(ctx context.Context) ([]core.WorkspaceID, error) {
	return s.repo.List(ctx)
}

// ResetWorkspace deletes every stored value of a workspace
func (s *CalculatorService) ResetWorkspace(ctx context.Context, ws core.WorkspaceID, confirmed bool) error {
	if !confirmed {
		return errors.ConfirmationRequired("resetting a workspace")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Delete(ctx, ws); err != nil {
		return errors.Wrapf(err, "failed to reset workspace %s", ws)
	}
	s.logger.Info("workspace %s reset", ws)
	return nil
}

// SetExpression replaces the working expression
func (s *CalculatorService) SetExpression(ctx context.Context, ws core.WorkspaceID, expr string) (*Snapshot, error) {
	return s.mutate(ctx, ws, "set expression", func(state *workspace.State) error {
		state.SetExpression(expr)
		return nil
	})
}

// RemoveNumber removes the working number shown at displayIndex
func (s *CalculatorService) RemoveNumber(ctx context.Context, ws core.WorkspaceID, displayIndex int) (*Snapshot, error) {
	return s.mutate(ctx, ws, "remove number", func(state *workspace.State) error {
		return state.RemoveWorkingNumber(displayIndex)
	})
}

// CycleSortMode advances the working set display order
func (s *CalculatorService) CycleSortMode(ctx context.Context, ws core.WorkspaceID) (*Snapshot, error) {
	return s.mutate(ctx, ws, "cycle sort mode", func(state *workspace.State) error {
		state.CycleSortMode()
		return nil
	})
}

// UpdateView changes chart type and cumulative mode
func (s *CalculatorService) UpdateView(ctx context.Context, ws core.WorkspaceID, update ViewUpdate) (*Snapshot, error) {
	return s.mutate(ctx, ws, "update view", func(state *workspace.State) error {
		if update.ChartType != nil {
			if err := state.SetChartType(*update.ChartType); err != nil {
				return err
			}
		}
		if update.Cumulative != nil && *update.Cumulative != state.View.Cumulative {
			state.ToggleCumulative()
		}
		return nil
	})
}

// Pin moves the working set into a new pinned set
func (s *CalculatorService) Pin(ctx context.Context, ws core.WorkspaceID) (*Snapshot, error) {
	return s.mutate(ctx, ws, "pin", func(state *workspace.State) error {
		p, err := state.Pin(s.colors)
		if err != nil {
			return err
		}
		s.logger.Debug("workspace %s: pinned %s (%d numbers)", ws, p.ID, p.Numbers.Len())
		return nil
	})
}

// NamedValues is one set of numbers to pin under a given name
type NamedValues struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Import pins each non-empty set in order in a single save
func (s *CalculatorService) Import(ctx context.Context, ws core.WorkspaceID, sets []NamedValues) (*Snapshot, error) {
	return s.mutate(ctx, ws, "import sets", func(state *workspace.State) error {
		pinned := 0
		for _, set := range sets {
			if len(set.Values) == 0 {
				continue
			}
			if _, err := state.PinValues(set.Name, set.Values, s.colors); err != nil {
				return err
			}
			pinned++
		}
		if pinned == 0 {
			return core.ErrNothingToPin
		}
		s.logger.Info("workspace %s: imported %d sets", ws, pinned)
		return nil
	})
}

// UpdatePinned applies name, color and number edits to one pinned set. All
// edits are validated before any is saved. RandomColor takes precedence over
// an explicit Color.
func (s *CalculatorService) UpdatePinned(ctx context.Context, ws core.WorkspaceID, id core.PinnedSetID, update PinnedSetUpdate) (*Snapshot, error) {
	return s.mutate(ctx, ws, "update pinned set", func(state *workspace.State) error {
		if _, _, err := state.Pinned(id); err != nil {
			return err
		}
		if update.Expression != nil {
			if err := state.EditPinnedNumbers(id, *update.Expression); err != nil {
				return err
			}
		}
		if update.Name != nil {
			if err := state.RenamePinned(id, *update.Name); err != nil {
				return err
			}
		}
		if update.RandomColor {
			if _, err := state.RecolorPinned(id, s.colors); err != nil {
				return err
			}
		} else if update.Color != nil {
			if err := state.SetPinnedColor(id, *update.Color); err != nil {
				return err
			}
		}
		return nil
	})
}

// MovePinned reorders a pinned set
func (s *CalculatorService) MovePinned(ctx context.Context, ws core.WorkspaceID, id core.PinnedSetID, dir workspace.Direction) (*Snapshot, error) {
	return s.mutate(ctx, ws, "move pinned set", func(state *workspace.State) error {
		return state.MovePinned(id, dir)
	})
}

// RemovePinnedNumber removes one number of a pinned set by identity
func (s *CalculatorService) RemovePinnedNumber(ctx context.Context, ws core.WorkspaceID, id core.PinnedSetID, entryID int) (*Snapshot, error) {
	return s.mutate(ctx, ws, "remove pinned number", func(state *workspace.State) error {
		return state.RemovePinnedNumber(id, entryID)
	})
}

// DeletePinned removes a pinned set; confirmed must be true
func (s *CalculatorService) DeletePinned(ctx context.Context, ws core.WorkspaceID, id core.PinnedSetID, confirmed bool) (*Snapshot, error) {
	return s.mutate(ctx, ws, "delete pinned set", func(state *workspace.State) error {
		if err := state.DeletePinned(id, confirmed); err != nil {
			if core.IsConfirmationError(err) {
				return errors.ConfirmationRequired("deleting a pinned set")
			}
			return err
		}
		s.logger.Info("workspace %s: deleted pinned set %s", ws, id)
		return nil
	})
}

func (s *CalculatorService) mutate(ctx context.Context, ws core.WorkspaceID, action string, fn func(*workspace.State) error) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.repo.Load(ctx, ws)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load workspace %s", ws)
	}
	if err := fn(state); err != nil {
		s.logger.Debug("workspace %s: %s rejected: %v", ws, action, err)
		return nil, errors.Wrapf(err, "failed to %s", action)
	}
	if err := s.repo.Save(ctx, ws, state); err != nil {
		s.logger.Error("workspace %s: %s not saved: %v", ws, action, err)
		return nil, errors.Wrapf(err, "failed to save after %s", action)
	}
	s.logger.Trace("workspace %s: %s", ws, action)
	return NewSnapshot(ws, state), nil
}

// NewSnapshot derives the render model from state
func NewSnapshot(ws core.WorkspaceID, state *workspace.State) *Snapshot {
	pinned := make([]workspace.PinnedSet, len(state.PinnedSets))
	copy(pinned, state.PinnedSets)
	return &Snapshot{
		Workspace:      ws,
		LastExpression: state.LastExpression,
		Numbers:        state.WorkingView(),
		Statistics:     state.WorkingStats(),
		PinnedSets:     pinned,
		Totals:         state.Totals(),
		View:           state.View,
		Chart:          state.Chart(),
	}
}
