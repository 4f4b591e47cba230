package app

import (
	"context"
	"math"
	"strings"
	"testing"

	"gocalc/domain/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportState(t *testing.T) *workspace.State {
	t.Helper()
	s := workspace.NewState()
	color := func() string { return "#102030" }
	_, err := s.PinValues("Rent | Bills", []float64{10, 20, 30}, color)
	require.NoError(t, err)
	_, err = s.PinValues("Ties", []float64{1, 1, 2, 2}, color)
	require.NoError(t, err)
	s.SetExpression("4")
	return s
}

func TestReportService_BuildFromState(t *testing.T) {
	svc := NewReportService(newMemoryRepository(), 2, quietLogger())

	report, err := svc.BuildFromState(context.Background(), ws, reportState(t))
	require.NoError(t, err)
	require.Len(t, report.Sets, 3)

	assert.Equal(t, "Rent | Bills", report.Sets[0].Name)
	assert.Equal(t, "10 +20 +30", report.Sets[0].Expression)
	assert.InDelta(t, 60.0/70.0, report.Sets[0].Share, 1e-9)
	assert.Equal(t, workspace.WorkingSetLabel, report.Sets[2].Name)
	assert.Equal(t, 70.0, report.Totals.Total)
	assert.Equal(t, 8, report.Totals.Count)
}

func TestReportService_BuildLoadsWorkspace(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	require.NoError(t, repo.Save(ctx, ws, reportState(t)))

	report, err := NewReportService(repo, 0, quietLogger()).Build(ctx, ws)
	require.NoError(t, err)
	assert.Len(t, report.Sets, 3)
}

func TestReportService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReportService(newMemoryRepository(), 1, quietLogger()).BuildFromState(ctx, ws, reportState(t))
	assert.Error(t, err)
}

func TestReport_Markdown(t *testing.T) {
	report, err := NewReportService(newMemoryRepository(), 4, quietLogger()).BuildFromState(context.Background(), ws, reportState(t))
	require.NoError(t, err)

	md := report.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Number stats: ws\n"))
	assert.Contains(t, md, `| Rent \| Bills | 3 | 60 | 20 | 20 | 10 | 30 | 10, 20, 30 | 85.71% |`)
	assert.Contains(t, md, "| Ties | 4 | 6 | 1.5 | 1.5 | 1 | 2 | 1, 2 | 8.57% |")
	assert.Contains(t, md, "| **All sets** | 8 | 70 |")
	assert.Contains(t, md, "- **Ties**: `1 +1 +2 +2`")
}

func TestReport_MarkdownEmpty(t *testing.T) {
	report, err := NewReportService(newMemoryRepository(), 1, quietLogger()).BuildFromState(context.Background(), ws, workspace.NewState())
	require.NoError(t, err)
	assert.Contains(t, report.Markdown(), "No numbers yet.")
}

func TestReport_HTML(t *testing.T) {
	report, err := NewReportService(newMemoryRepository(), 1, quietLogger()).BuildFromState(context.Background(), ws, reportState(t))
	require.NoError(t, err)

	out := string(report.HTML())
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>All sets</strong>")
}

func TestReport_HTMLDropsMarkupInNames(t *testing.T) {
	s := workspace.NewState()
	color := func() string { return "#102030" }
	_, err := s.PinValues("<script>alert(1)</script>", []float64{1}, color)
	require.NoError(t, err)
	_, err = s.PinValues("<img src=x onerror=alert(1)>", []float64{2}, color)
	require.NoError(t, err)
	_, err = s.PinValues("[click](javascript:alert(1))", []float64{3}, color)
	require.NoError(t, err)

	report, err := NewReportService(newMemoryRepository(), 1, quietLogger()).BuildFromState(context.Background(), ws, s)
	require.NoError(t, err)

	out := string(report.HTML())
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
	assert.NotContains(t, out, `href="javascript:`)
	assert.Contains(t, out, "<table>")
}

func TestFormatStat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{2, "2"},
		{2.5, "2.5"},
		{1.0 / 3.0, "0.33"},
		{-0.001, "0"},
		{math.NaN(), "—"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatStat(tt.in))
	}
}
