package app

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync"
	"testing"

	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/numberset"
	"gocalc/domain/workspace"
	"gocalc/internal"
	"gocalc/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const ws = core.WorkspaceID("ws")

// memoryRepository keeps deep copies so tests observe only saved state
type memoryRepository struct {
	mu     sync.Mutex
	states map[core.WorkspaceID]*workspace.State
	saves  int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{states: make(map[core.WorkspaceID]*workspace.State)}
}

func cloneState(s *workspace.State) *workspace.State {
	out := *s
	out.Working = s.Working.Clone()
	out.PinnedSets = make([]workspace.PinnedSet, len(s.PinnedSets))
	for i, p := range s.PinnedSets {
		p.Numbers = p.Numbers.Clone()
		out.PinnedSets[i] = p
	}
	return &out
}

func (r *memoryRepository) Load(_ context.Context, id core.WorkspaceID) (*workspace.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.states[id]; ok {
		return cloneState(s), nil
	}
	return workspace.NewState(), nil
}

func (r *memoryRepository) Save(_ context.Context, id core.WorkspaceID, s *workspace.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[id] = cloneState(s)
	r.saves++
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]core.WorkspaceID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]core.WorkspaceID, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryRepository) Delete(_ context.Context, id core.WorkspaceID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, id)
	return nil
}

type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) Load(ctx context.Context, id core.WorkspaceID) (*workspace.State, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*workspace.State), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStateRepository) Save(ctx context.Context, id core.WorkspaceID, s *workspace.State) error {
	return m.Called(ctx, id, s).Error(0)
}

func (m *MockStateRepository) List(ctx context.Context) ([]core.WorkspaceID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]core.WorkspaceID), args.Error(1)
}

func (m *MockStateRepository) Delete(ctx context.Context, id core.WorkspaceID) error {
	return m.Called(ctx, id).Error(0)
}

func quietLogger() *internal.Logger {
	l := internal.NewLogger(internal.LogLevelError)
	l.SetOutput(io.Discard)
	return l
}

func newTestService() (*CalculatorService, *memoryRepository) {
	repo := newMemoryRepository()
	svc := NewCalculatorService(repo, quietLogger()).WithColorFunc(func() string { return "#123456" })
	return svc, repo
}

func TestCalculatorService_Parse(t *testing.T) {
	svc, repo := newTestService()

	res := svc.Parse("1, 2 + 3.5 -4")
	assert.Equal(t, []float64{1, 2, 3.5, -4}, res.Numbers)
	assert.Equal(t, "1 +2 +3.5 -4", res.Formatted)
	assert.Equal(t, 2.5, res.Statistics.Total)
	assert.Equal(t, 0, repo.saves)
}

func TestCalculatorService_ExpressionAndPinFlow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	snap, err := svc.SetExpression(ctx, ws, "5+5+2")
	require.NoError(t, err)
	assert.Equal(t, 12.0, snap.Statistics.Total)
	assert.Equal(t, 5.0, snap.Statistics.Mode)
	assert.Len(t, snap.Chart.Series, 1)

	snap, err = svc.Pin(ctx, ws)
	require.NoError(t, err)
	require.Len(t, snap.PinnedSets, 1)
	assert.Equal(t, "Pinned Set 1", snap.PinnedSets[0].Name)
	assert.Equal(t, "#123456", snap.PinnedSets[0].Color)
	assert.Equal(t, "", snap.LastExpression)
	assert.Empty(t, snap.Numbers)
	assert.Equal(t, 12.0, snap.Totals.Total)

	snap, err = svc.SetExpression(ctx, ws, "1")
	require.NoError(t, err)
	assert.Equal(t, 13.0, snap.Totals.Total)
	assert.Equal(t, []string{"1", "2", "3"}, snap.Chart.Labels)

	reloaded, err := svc.State(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, snap.PinnedSets[0].ID, reloaded.PinnedSets[0].ID)
	assert.Equal(t, "1", reloaded.LastExpression)
}

func TestCalculatorService_PinEmptyIsRejectedAndNotSaved(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Pin(context.Background(), ws)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNothingToPin)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Equal(t, 0, repo.saves)
}

func TestCalculatorService_RemoveNumberFollowsSortMode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.SetExpression(ctx, ws, "3+1+2")
	require.NoError(t, err)
	snap, err := svc.CycleSortMode(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, numberset.SortAscending, snap.View.SortMode)
	assert.Equal(t, 1.0, snap.Numbers[0].Value)

	snap, err = svc.RemoveNumber(ctx, ws, 0)
	require.NoError(t, err)
	assert.Equal(t, "3 +2", snap.LastExpression)

	_, err = svc.RemoveNumber(ctx, ws, 9)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
}

func TestCalculatorService_UpdateView(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	bar := chart.TypeBar
	on := true
	snap, err := svc.UpdateView(ctx, ws, ViewUpdate{ChartType: &bar, Cumulative: &on})
	require.NoError(t, err)
	assert.Equal(t, chart.TypeBar, snap.View.ChartType)
	assert.True(t, snap.View.Cumulative)
	assert.True(t, snap.Chart.Cumulative)

	snap, err = svc.UpdateView(ctx, ws, ViewUpdate{Cumulative: &on})
	require.NoError(t, err)
	assert.True(t, snap.View.Cumulative, "setting the same value does not toggle")

	pie := chart.Type("pie")
	_, err = svc.UpdateView(ctx, ws, ViewUpdate{ChartType: &pie})
	assert.ErrorIs(t, err, core.ErrInvalidChartType)
}

func TestCalculatorService_UpdatePinned(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	_, err := svc.SetExpression(ctx, ws, "1+2")
	require.NoError(t, err)
	snap, err := svc.Pin(ctx, ws)
	require.NoError(t, err)
	id := snap.PinnedSets[0].ID

	name := "Groceries"
	color := "#ABCDEF"
	expr := "10+20"
	snap, err = svc.UpdatePinned(ctx, ws, id, PinnedSetUpdate{Name: &name, Color: &color, Expression: &expr})
	require.NoError(t, err)
	p := snap.PinnedSets[0]
	assert.Equal(t, "Groceries", p.Name)
	assert.Equal(t, "#abcdef", p.Color)
	assert.Equal(t, 30.0, p.Results.Total)

	posted := "#000000"
	snap, err = svc.UpdatePinned(ctx, ws, id, PinnedSetUpdate{Name: &name, Color: &posted, RandomColor: true})
	require.NoError(t, err)
	assert.Equal(t, "#123456", snap.PinnedSets[0].Color)

	saves := repo.saves
	bad := "oops"
	_, err = svc.UpdatePinned(ctx, ws, id, PinnedSetUpdate{Name: &name, Color: &bad})
	assert.ErrorIs(t, err, core.ErrInvalidColor)
	assert.Equal(t, saves, repo.saves)

	empty := "no numbers"
	_, err = svc.UpdatePinned(ctx, ws, id, PinnedSetUpdate{Expression: &empty})
	assert.ErrorIs(t, err, core.ErrEmptyExpression)

	_, err = svc.UpdatePinned(ctx, ws, "missing", PinnedSetUpdate{Name: &name})
	assert.ErrorIs(t, err, core.ErrPinnedSetNotFound)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestCalculatorService_MoveAndRemovePinnedNumber(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	for _, expr := range []string{"1", "2+2", "3"} {
		_, err := svc.SetExpression(ctx, ws, expr)
		require.NoError(t, err)
		_, err = svc.Pin(ctx, ws)
		require.NoError(t, err)
	}
	snap, err := svc.State(ctx, ws)
	require.NoError(t, err)
	first := snap.PinnedSets[0].ID
	second := snap.PinnedSets[1]

	snap, err = svc.MovePinned(ctx, ws, first, workspace.DirectionLeft)
	require.NoError(t, err)
	assert.Equal(t, first, snap.PinnedSets[1].ID)

	snap, err = svc.RemovePinnedNumber(ctx, ws, second.ID, second.Numbers.Entries()[1].ID)
	require.NoError(t, err)
	got := snap.PinnedSets[0]
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, []float64{2}, got.Numbers.Values())
	assert.Equal(t, 2.0, got.Results.Total)
}

func TestCalculatorService_DeletePinnedNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.SetExpression(ctx, ws, "4")
	require.NoError(t, err)
	snap, err := svc.Pin(ctx, ws)
	require.NoError(t, err)
	id := snap.PinnedSets[0].ID

	_, err = svc.DeletePinned(ctx, ws, id, false)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfirmationRequired, errors.GetCode(err))

	snap, err = svc.DeletePinned(ctx, ws, id, true)
	require.NoError(t, err)
	assert.Empty(t, snap.PinnedSets)
}

func TestCalculatorService_Import(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	snap, err := svc.Import(ctx, ws, []NamedValues{
		{Name: "A", Values: []float64{1, 2}},
		{Name: "skip"},
		{Name: "", Values: []float64{5}},
	})
	require.NoError(t, err)
	require.Len(t, snap.PinnedSets, 2)
	assert.Equal(t, "A", snap.PinnedSets[0].Name)
	assert.Equal(t, "Pinned Set 2", snap.PinnedSets[1].Name)

	_, err = svc.Import(ctx, ws, []NamedValues{{Name: "none"}})
	assert.ErrorIs(t, err, core.ErrNothingToPin)
}

func TestCalculatorService_ResetWorkspace(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	_, err := svc.SetExpression(ctx, ws, "1")
	require.NoError(t, err)

	err = svc.ResetWorkspace(ctx, ws, false)
	assert.Equal(t, errors.CodeConfirmationRequired, errors.GetCode(err))
	ids, _ := svc.Workspaces(ctx)
	assert.Equal(t, []core.WorkspaceID{ws}, ids)

	require.NoError(t, svc.ResetWorkspace(ctx, ws, true))
	assert.Empty(t, repo.states)
}

func TestCalculatorService_SaveFailureIsReported(t *testing.T) {
	repo := new(MockStateRepository)
	repo.On("Load", mock.Anything, ws).Return(workspace.NewState(), nil)
	repo.On("Save", mock.Anything, ws, mock.AnythingOfType("*workspace.State")).
		Return(errors.WithCode(errors.CodeDatabaseError, stderrors.New("disk full")))
	svc := NewCalculatorService(repo, quietLogger())

	_, err := svc.SetExpression(context.Background(), ws, "1+1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	repo.AssertExpectations(t)
}

func TestCalculatorService_RejectedActionSkipsSave(t *testing.T) {
	repo := new(MockStateRepository)
	repo.On("Load", mock.Anything, ws).Return(workspace.NewState(), nil)
	svc := NewCalculatorService(repo, quietLogger())

	_, err := svc.MovePinned(context.Background(), ws, "nope", workspace.DirectionLeft)
	assert.ErrorIs(t, err, core.ErrPinnedSetNotFound)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestCalculatorService_ConcurrentActionsAreSerialised(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Import(ctx, ws, []NamedValues{{Name: "n", Values: []float64{1}}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := svc.State(ctx, ws)
	require.NoError(t, err)
	assert.Len(t, snap.PinnedSets, 20)
	assert.Equal(t, 20.0, snap.Totals.Total)
}

type recordingExporter struct {
	got *workspace.State
}

func (e *recordingExporter) Export(w io.Writer, s *workspace.State) error {
	e.got = s
	_, err := io.WriteString(w, s.LastExpression)
	return err
}

func (e *recordingExporter) ContentType() string { return "text/plain" }
func (e *recordingExporter) Extension() string { return ".txt" }

func TestCalculatorService_Export(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, err := svc.SetExpression(ctx, ws, "8")
	require.NoError(t, err)

	var b strings.Builder
	exporter := &recordingExporter{}
	require.NoError(t, svc.Export(ctx, ws, exporter, &b))
	assert.Equal(t, "8", b.String())
	assert.Equal(t, []float64{8}, exporter.got.Working.Values())
}
