package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gocalc/domain/core"
	"gocalc/domain/expression"
	"gocalc/domain/stats"
	"gocalc/domain/workspace"
	"gocalc/internal"
	"gocalc/internal/errors"
	"gocalc/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/sync/errgroup"
)

// SetSummary is one row of the comparison report. Share is the set's
// fraction of the combined total, NaN when that total is zero.
type SetSummary struct {
	Name       string           `json:"name"`
	Color      string           `json:"color"`
	Expression string           `json:"expression"`
	Statistics stats.Statistics `json:"statistics"`
	Share      float64          `json:"-"`
}

// Report compares every set of a workspace
type Report struct {
	Workspace core.WorkspaceID `json:"workspace"`
	Sets      []SetSummary     `json:"sets"`
	Totals    stats.Statistics `json:"totals"`
}

// ReportService renders comparison reports
type ReportService struct {
	repo    ports.StateRepository
	workers int
	logger  *internal.Logger
}

// NewReportService creates a report service summarising up to workers sets at once
func NewReportService(repo ports.StateRepository, workers int, logger *internal.Logger) *ReportService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ReportService{repo: repo, workers: workers, logger: logger.With("report")}
}

// Build summarises the working set and every pinned set, in display order
func (s *ReportService) Build(ctx context.Context, ws core.WorkspaceID) (*Report, error) {
	state, err := s.repo.Load(ctx, ws)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load workspace %s", ws)
	}
	return s.BuildFromState(ctx, ws, state)
}

// BuildFromState summarises an already loaded state
func (s *ReportService) BuildFromState(ctx context.Context, ws core.WorkspaceID, state *workspace.State) (*Report, error) {
	type input struct {
		name, color string
		values      []float64
	}
	inputs := make([]input, 0, len(state.PinnedSets)+1)
	for _, p := range state.PinnedSets {
		inputs = append(inputs, input{name: p.Name, color: p.Color, values: p.Numbers.Values()})
	}
	if !state.Working.IsEmpty() {
		inputs = append(inputs, input{name: workspace.WorkingSetLabel, color: workspace.WorkingSetColor, values: state.Working.Values()})
	}

	totals := state.Totals()
	summaries := make([]SetSummary, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			st := stats.Compute(in.values)
			share := math.NaN()
			if totals.Total != 0 {
				share = st.Total / totals.Total
			}
			summaries[i] = SetSummary{
				Name:       in.name,
				Color:      in.color,
				Expression: expression.Format(in.values),
				Statistics: st,
				Share:      share,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "report cancelled")
	}

	s.logger.Debug("workspace %s: report over %d sets", ws, len(summaries))
	return &Report{Workspace: ws, Sets: summaries, Totals: totals}, nil
}

// Markdown renders the report as a markdown document
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Number stats: %s\n\n", r.Workspace)

	if len(r.Sets) == 0 {
		b.WriteString("No numbers yet.\n")
		return b.String()
	}

	b.WriteString("| Set | Count | Total | Mean | Median | Min | Max | Mode | Share |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, set := range r.Sets {
		writeRow(&b, escapeCell(set.Name), set.Statistics, percent(set.Share))
	}
	writeRow(&b, "**All sets**", r.Totals, "100%")

	b.WriteString("\n## Numbers\n\n")
	for _, set := range r.Sets {
		fmt.Fprintf(&b, "- **%s**: `%s`\n", escapeCell(set.Name), set.Expression)
	}
	return b.String()
}

// HTML renders the markdown report to an HTML fragment. Raw HTML in set
// names is dropped and unsafe links are not rendered.
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	flags := html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.Safelink
	renderer := html.NewRenderer(html.RendererOptions{Flags: flags})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

func writeRow(b *strings.Builder, label string, st stats.Statistics, share string) {
	mode := FormatStat(st.Mode)
	if !st.UniqueMode && len(st.Modes) > 1 {
		parts := make([]string, len(st.Modes))
		for i, m := range st.Modes {
			parts[i] = FormatStat(m)
		}
		mode = strings.Join(parts, ", ")
	}
	fmt.Fprintf(b, "| %s | %d | %s | %s | %s | %s | %s | %s | %s |\n",
		label, st.Count, FormatStat(st.Total), FormatStat(st.Mean), FormatStat(st.Median),
		FormatStat(st.Min), FormatStat(st.Max), mode, share)
}

// FormatStat prints a statistic with at most two decimals, or an em dash for NaN
func FormatStat(v float64) string {
	if math.IsNaN(v) {
		return "—"
	}
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		s = "0"
	}
	return s
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "—"
	}
	return FormatStat(v*100) + "%"
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
