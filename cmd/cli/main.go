package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gocalc/adapters/excel"
	"gocalc/app"
	"gocalc/domain/core"
	"gocalc/domain/expression"
	"gocalc/domain/stats"
	"gocalc/domain/workspace"
	"gocalc/internal/config"
	"gocalc/internal/container"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cli carries the flags and container shared by every command
type cli struct {
	workspace string
	jsonOut   bool
	container *container.Container
	out       io.Writer
}

func main() {
	_ = godotenv.Load()

	c := &cli{out: os.Stdout}
	rootCmd := newRootCmd(c)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gocalc-cli",
		Short:         "Number statistics calculator with pinned sets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.container != nil {
				return c.container.Shutdown(cmd.Context())
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.workspace, "workspace", "w", "", "Workspace ID (default from DEFAULT_WORKSPACE)")
	rootCmd.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print JSON instead of text")

	rootCmd.AddCommand(
		newParseCmd(c),
		newStatsCmd(c),
		newStateCmd(c),
		newSetCmd(c),
		newRemoveCmd(c),
		newSortCmd(c),
		newPinCmd(c),
		newPinsCmd(c),
		newRenameCmd(c),
		newColorCmd(c),
		newEditCmd(c),
		newMoveCmd(c),
		newDeleteCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newReportCmd(c),
		newWorkspacesCmd(c),
		newResetCmd(c),
	)
	return rootCmd
}

// open wires the container on first use; parse and stats never touch storage
func (c *cli) open(ctx context.Context) (*container.Container, core.WorkspaceID, error) {
	if c.container == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, "", err
		}
		if c.workspace == "" {
			c.workspace = cfg.Server.DefaultWorkspace
		}
		ct, err := container.Open(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		c.container = ct
	}
	ws, err := core.ParseWorkspaceID(c.workspace)
	if err != nil {
		return nil, "", err
	}
	return c.container, ws, nil
}

// mutation runs a calculator action and prints the resulting state
func (c *cli) mutation(fn func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ct, ws, err := c.open(cmd.Context())
		if err != nil {
			return err
		}
		snap, err := fn(cmd.Context(), ct.Calculator, ws)
		if err != nil {
			return err
		}
		return c.printSnapshot(snap)
	}
}

func newParseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "parse EXPR",
		Short: "Print the numbers found in an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.NewCalculatorService(nil, nil).Parse(args[0])
			if c.jsonOut {
				return c.printJSON(res)
			}
			fmt.Fprintln(c.out, res.Formatted)
			return nil
		},
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats EXPR",
		Short: "Compute statistics for an expression without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.NewCalculatorService(nil, nil).Parse(args[0])
			if c.jsonOut {
				return c.printJSON(res.Statistics)
			}
			c.printStats(res.Statistics)
			return nil
		},
	}
}

func newStateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the working set, pinned sets and totals",
		Args:  cobra.NoArgs,
		RunE: c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
			return calc.State(ctx, ws)
		}),
	}
}

func newSetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set EXPR",
		Short: "Replace the working expression",
		Long: `Replace the working expression. Signed numbers are read left to right;
spaces and commas separate numbers, so "1 2" reads as 1 and 2.

Example: gocalc-cli set "10+20-5"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.SetExpression(ctx, ws, args[0])
			})(cmd, args)
		},
	}
}

func newRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove INDEX",
		Short: "Remove the working number shown at INDEX (0-based, current sort order)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], err)
			}
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.RemoveNumber(ctx, ws, index)
			})(cmd, args)
		},
	}
}

func newSortCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sort",
		Short: "Cycle the working set order: original, ascending, descending",
		Args:  cobra.NoArgs,
		RunE: c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
			return calc.CycleSortMode(ctx, ws)
		}),
	}
}

func newPinCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pin",
		Short: "Pin the working set and clear the input",
		Args:  cobra.NoArgs,
		RunE: c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
			return calc.Pin(ctx, ws)
		}),
	}
}

func newPinsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pins",
		Short: "List pinned sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, ws, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := ct.Calculator.State(cmd.Context(), ws)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(snap.PinnedSets)
			}
			for _, p := range snap.PinnedSets {
				c.printPinned(p)
			}
			return nil
		},
	}
}

func newRenameCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a pinned set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[1]
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.UpdatePinned(ctx, ws, core.PinnedSetID(args[0]), app.PinnedSetUpdate{Name: &name})
			})(cmd, args)
		},
	}
}

func newColorCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "color ID [#rrggbb]",
		Short: "Set a pinned set's color, or generate a random one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := app.PinnedSetUpdate{RandomColor: len(args) == 1}
			if len(args) == 2 {
				update.Color = &args[1]
			}
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.UpdatePinned(ctx, ws, core.PinnedSetID(args[0]), update)
			})(cmd, args)
		},
	}
}

func newEditCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID EXPR",
		Short: "Replace a pinned set's numbers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := args[1]
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.UpdatePinned(ctx, ws, core.PinnedSetID(args[0]), app.PinnedSetUpdate{Expression: &expr})
			})(cmd, args)
		},
	}
}

func newMoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID left|right",
		Short: "Swap a pinned set with its neighbour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := workspace.ParseDirection(args[1])
			if err != nil {
				return err
			}
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.MovePinned(ctx, ws, core.PinnedSetID(args[0]), dir)
			})(cmd, args)
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a pinned set (requires --yes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.DeletePinned(ctx, ws, core.PinnedSetID(args[0]), yes)
			})(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")

	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: "Write pinned sets and statistics to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, ws, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := ct.Calculator.Export(cmd.Context(), ws, ct.Exporter, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Exported workspace %s to %s\n", ws, args[0])
			return nil
		},
	}
}

func newImportCmd(c *cli) *cobra.Command {
	var sheet string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Pin every column of a CSV or Excel file",
		Long: `Pin every column of a CSV or Excel file. The first row names the sets;
cells below are read like calculator input.

Example: gocalc-cli import budget.xlsx --sheet Numbers`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			sets, err := excel.NewDataReader(args[0]).WithSheet(sheet).Read(f)
			if err != nil {
				return err
			}
			named := make([]app.NamedValues, len(sets))
			for i, s := range sets {
				named[i] = app.NamedValues{Name: s.Name, Values: s.Values}
			}
			return c.mutation(func(ctx context.Context, calc *app.CalculatorService, ws core.WorkspaceID) (*app.Snapshot, error) {
				return calc.Import(ctx, ws, named)
			})(cmd, args)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default: first sheet)")

	return cmd
}

func newReportCmd(c *cli) *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a markdown comparison of all sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, ws, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			report, err := ct.Reports.Build(cmd.Context(), ws)
			if err != nil {
				return err
			}
			switch {
			case c.jsonOut:
				return c.printJSON(report)
			case html:
				_, err = c.out.Write(report.HTML())
			default:
				_, err = io.WriteString(c.out, report.Markdown())
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "Render the report as HTML")

	return cmd
}

func newWorkspacesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List stored workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, _, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := ct.Calculator.Workspaces(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(ids)
			}
			for _, id := range ids {
				fmt.Fprintln(c.out, id)
			}
			return nil
		},
	}
}

func newResetCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete everything stored for the workspace (requires --yes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, ws, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := ct.Calculator.ResetWorkspace(cmd.Context(), ws, yes); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Workspace %s reset\n", ws)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm reset")

	return cmd
}

// Output

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printSnapshot(snap *app.Snapshot) error {
	if c.jsonOut {
		return c.printJSON(snap)
	}
	values := make([]string, len(snap.Numbers))
	for i, n := range snap.Numbers {
		values[i] = expression.FormatNumber(n.Value)
	}
	fmt.Fprintf(c.out, "Workspace: %s\n", snap.Workspace)
	fmt.Fprintf(c.out, "Expression: %s\n", snap.LastExpression)
	fmt.Fprintf(c.out, "Numbers (%s): %s\n", snap.View.SortMode, strings.Join(values, ", "))
	c.printStats(snap.Statistics)
	for _, p := range snap.PinnedSets {
		c.printPinned(p)
	}
	if len(snap.PinnedSets) > 0 {
		fmt.Fprintln(c.out, "All sets:")
		c.printStats(snap.Totals)
	}
	return nil
}

func (c *cli) printPinned(p workspace.PinnedSet) {
	fmt.Fprintf(c.out, "[%s] %s %s: %s\n", p.ID, p.Name, p.Color, p.Numbers.Expression())
	c.printStats(p.Results)
}

func (c *cli) printStats(s stats.Statistics) {
	modes := make([]string, len(s.Modes))
	for i, m := range s.Modes {
		modes[i] = app.FormatStat(m)
	}
	fmt.Fprintf(c.out, "  count=%d total=%s mean=%s median=%s min=%s max=%s range=%s stddev=%s mode=%s\n",
		s.Count, app.FormatStat(s.Total), app.FormatStat(s.Mean), app.FormatStat(s.Median),
		app.FormatStat(s.Min), app.FormatStat(s.Max), app.FormatStat(s.Range), app.FormatStat(s.StdDev),
		strings.Join(modes, ","))
}
