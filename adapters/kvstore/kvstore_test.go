package kvstore

import (
	"context"
	"io"
	"math"
	"testing"

	"gocalc/domain/chart"
	"gocalc/domain/core"
	"gocalc/domain/numberset"
	"gocalc/domain/workspace"
	"gocalc/internal"
	"gocalc/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWorkspace = core.WorkspaceID("test")

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	return NewStore(db)
}

func newTestRepository(t *testing.T) (*StateRepository, *Store) {
	t.Helper()
	store := newTestStore(t)
	logger := internal.NewLogger(internal.LogLevelError)
	logger.SetOutput(io.Discard)
	return NewStateRepository(store, logger), store
}

func color() string { return "#445566" }

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "ns", "k", "v1"))
	require.NoError(t, store.Put(ctx, "ns", "k", "v2"))
	value, ok, err := store.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", value)

	require.NoError(t, store.Delete(ctx, "ns", "k"))
	require.NoError(t, store.Delete(ctx, "ns", "k"))
	_, ok, err = store.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ApplyAndNamespaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	a, b := "1", "2"
	require.NoError(t, store.Apply(ctx, "one", Mutation{Key: "a", Value: &a}, Mutation{Key: "b", Value: &b}))
	require.NoError(t, store.Put(ctx, "two", "a", "x"))
	require.NoError(t, store.Apply(ctx, "one", Mutation{Key: "b"}))

	values, err := store.GetAll(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, values)

	namespaces, err := store.Namespaces(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two"}, namespaces)

	require.NoError(t, store.DeleteNamespace(ctx, "one"))
	namespaces, err = store.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, namespaces)
}

func TestStateRepository_LoadEmpty(t *testing.T) {
	repo, _ := newTestRepository(t)

	state, err := repo.Load(context.Background(), testWorkspace)
	require.NoError(t, err)
	assert.Equal(t, "", state.LastExpression)
	assert.True(t, state.Working.IsEmpty())
	assert.Empty(t, state.PinnedSets)
	assert.Equal(t, workspace.DefaultViewPreferences(), state.View)
}

func TestStateRepository_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	state := workspace.NewState()
	state.SetExpression("4+4+1")
	_, err := state.Pin(color)
	require.NoError(t, err)
	_, err = state.PinValues("Second", []float64{-1, 2.5}, color)
	require.NoError(t, err)
	state.SetExpression("7 -3")
	state.CycleSortMode()
	require.NoError(t, state.SetChartType(chart.TypeBar))
	state.ToggleCumulative()
	require.NoError(t, repo.Save(ctx, testWorkspace, state))

	loaded, err := repo.Load(ctx, testWorkspace)
	require.NoError(t, err)

	assert.Equal(t, "7 -3", loaded.LastExpression)
	assert.Equal(t, []float64{7, -3}, loaded.Working.Values())
	assert.Equal(t, workspace.ViewPreferences{SortMode: numberset.SortAscending, ChartType: chart.TypeBar, Cumulative: true}, loaded.View)
	require.Len(t, loaded.PinnedSets, 2)
	for i := range state.PinnedSets {
		assert.Equal(t, state.PinnedSets[i].ID, loaded.PinnedSets[i].ID)
		assert.Equal(t, state.PinnedSets[i].Name, loaded.PinnedSets[i].Name)
		assert.Equal(t, state.PinnedSets[i].Color, loaded.PinnedSets[i].Color)
		assert.Equal(t, state.PinnedSets[i].Numbers.Values(), loaded.PinnedSets[i].Numbers.Values())
		assert.Equal(t, state.PinnedSets[i].Results, loaded.PinnedSets[i].Results)
	}
}

func TestStateRepository_EmptyExpressionRemovesKey(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepository(t)

	state := workspace.NewState()
	state.SetExpression("1+2")
	require.NoError(t, repo.Save(ctx, testWorkspace, state))
	_, ok, err := store.Get(ctx, testWorkspace.String(), KeyLastExpression)
	require.NoError(t, err)
	assert.True(t, ok)

	state.SetExpression("")
	require.NoError(t, repo.Save(ctx, testWorkspace, state))
	_, ok, err = store.Get(ctx, testWorkspace.String(), KeyLastExpression)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateRepository_MalformedPinnedSetsTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepository(t)

	require.NoError(t, store.Put(ctx, testWorkspace.String(), KeyPinnedSets, "{not json"))
	require.NoError(t, store.Put(ctx, testWorkspace.String(), KeyLastExpression, "5"))
	require.NoError(t, store.Put(ctx, testWorkspace.String(), KeyViewPreferences, "nope"))

	state, err := repo.Load(ctx, testWorkspace)
	require.NoError(t, err)
	assert.Empty(t, state.PinnedSets)
	assert.Equal(t, []float64{5}, state.Working.Values())
	assert.Equal(t, workspace.DefaultViewPreferences(), state.View)
}

func TestStateRepository_DropsMalformedRecordsAndRecomputes(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepository(t)

	raw := `[
		{"id":"a","name":"Good","color":"#010203","numbers":[1,2,3],"results":{"total":999}},
		{"id":"b","name":"Bad","color":"#010203","numbers":"1,2"},
		{"id":"c","name":"Mixed","color":"#010203","numbers":[1,"x"]},
		42,
		{"id":"d","name":"Empty","color":"#010203","numbers":[]}
	]`
	require.NoError(t, store.Put(ctx, testWorkspace.String(), KeyPinnedSets, raw))

	state, err := repo.Load(ctx, testWorkspace)
	require.NoError(t, err)
	require.Len(t, state.PinnedSets, 2)

	good := state.PinnedSets[0]
	assert.Equal(t, core.PinnedSetID("a"), good.ID)
	assert.Equal(t, 6.0, good.Results.Total)
	assert.Equal(t, 2.0, good.Results.Mean)

	empty := state.PinnedSets[1]
	assert.Equal(t, "Empty", empty.Name)
	assert.Equal(t, 0, empty.Results.Count)
	assert.True(t, math.IsNaN(empty.Results.Mean))
}

func TestStateRepository_AssignsMissingIDsOnce(t *testing.T) {
	ctx := context.Background()
	repo, store := newTestRepository(t)

	raw := `[{"name":"Legacy","color":"hsl(10, 50%, 50%)","numbers":[2,2]}]`
	require.NoError(t, store.Put(ctx, testWorkspace.String(), KeyPinnedSets, raw))

	first, err := repo.Load(ctx, testWorkspace)
	require.NoError(t, err)
	require.Len(t, first.PinnedSets, 1)
	id := first.PinnedSets[0].ID
	assert.NotEmpty(t, id.String())

	second, err := repo.Load(ctx, testWorkspace)
	require.NoError(t, err)
	assert.Equal(t, id, second.PinnedSets[0].ID)
	assert.Equal(t, first.PinnedSets[0].Color, second.PinnedSets[0].Color)
}

func TestStateRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	state := workspace.NewState()
	state.SetExpression("1")
	require.NoError(t, repo.Save(ctx, "alpha", state))
	require.NoError(t, repo.Save(ctx, "beta", state))

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.WorkspaceID{"alpha", "beta"}, ids)

	require.NoError(t, repo.Delete(ctx, "alpha"))
	ids, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.WorkspaceID{"beta"}, ids)

	loaded, err := repo.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "", loaded.LastExpression)
}

func TestDecodeViewPreferences_PerFieldFallback(t *testing.T) {
	view := DecodeViewPreferences(`{"sort_mode":"sideways","chart_type":"bar","cumulative":"yes"}`)
	assert.Equal(t, numberset.SortOriginal, view.SortMode)
	assert.Equal(t, chart.TypeBar, view.ChartType)
	assert.False(t, view.Cumulative)
}
