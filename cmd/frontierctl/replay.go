package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Frontier/internal/config"
	"github.com/MikeSquared-Agency/Frontier/internal/estimator"
	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
	"github.com/MikeSquared-Agency/Frontier/internal/optimizer"
	"github.com/MikeSquared-Agency/Frontier/internal/render"
	"github.com/MikeSquared-Agency/Frontier/internal/search"
)

// planLog is the on-disk record of a search: the plans in the order they were evaluated.
type planLog struct {
	Name    string       `yaml:"name"`
	Actions []string     `yaml:"actions"`
	Plans   []loggedPlan `yaml:"plans"`
}

type loggedPlan struct {
	ID         int64    `yaml:"id"`
	Parent     *int64   `yaml:"parent,omitempty"`
	Cost       float64  `yaml:"cost"`
	Accuracy   *float64 `yaml:"accuracy,omitempty"`
	Action     string   `yaml:"action,omitempty"`
	ConfigPath string   `yaml:"config_path,omitempty"`
}

type replayOptions struct {
	configPath    string
	plot          string
	treeDir       string
	maxIterations int
	maxTime       time.Duration
	actions       []string
	comparatorURL string
}

func newReplayCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var opts replayOptions

	cmd := &cobra.Command{
		Use:   "replay <plans.yaml>",
		Short: "Replay a plan log through a fresh frontier engine",
		Long: `Replay ingests every plan of a log, in order, into an in-memory run and prints the
resulting frontier and per-action credit.

Plans without an accuracy are estimated with the configured comparator, or get the
0.5 baseline when none is configured. A cost of -1 marks a failed plan.

Examples:
  frontierctl replay plans.yaml
  frontierctl replay plans.yaml --plot frontier.png
  frontierctl replay plans.yaml --max-iterations 20 --max-time 30s --tree-dir trees/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args[0], opts, logger(cmd))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to config file")
	f.StringVar(&opts.plot, "plot", "", "write the cost/accuracy scatter to this PNG file")
	f.StringVar(&opts.treeDir, "tree-dir", "", "dump the search tree after every plan into this directory")
	f.IntVar(&opts.maxIterations, "max-iterations", 0, "stop after this many plans (defaults to search.max_iterations)")
	f.DurationVar(&opts.maxTime, "max-time", 0, "stop after this much wall-clock time (defaults to search.max_time_ms)")
	f.StringSliceVar(&opts.actions, "actions", nil, "rewrite actions to credit (defaults to the log's actions)")
	f.StringVar(&opts.comparatorURL, "comparator-url", "", "judge service used to estimate missing accuracies")
	return cmd
}

func loadPlanLog(path string) (*planLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan log: %w", err)
	}
	var pl planLog
	if err := yaml.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("parse plan log: %w", err)
	}
	if pl.Name == "" {
		pl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &pl, nil
}

func runReplay(cmd *cobra.Command, path string, opts replayOptions, logger *slog.Logger) error {
	ctx := cmd.Context()

	pl, err := loadPlanLog(path)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	cfg.Frontier.PlotDir = ""
	cfg.Frontier.TreeDir = opts.treeDir
	if opts.comparatorURL != "" {
		cfg.Comparator.URL = opts.comparatorURL
	}

	var est frontier.AccuracyEstimator
	if cfg.Comparator.URL != "" {
		cmp := estimator.NewHTTPClient(cfg.Comparator.URL, cfg.Comparator.Token, cfg.ComparatorTimeout(), cfg.Comparator.RatePerSecond)
		est = estimator.New(cmp, cfg.Comparator.Concurrency, nil, logger)
	}

	actions := opts.actions
	if len(actions) == 0 {
		actions = pl.Actions
	}

	mgr := optimizer.New(nil, nil, est, nil, cfg, logger)
	run, err := mgr.CreateRun(ctx, pl.Name, "frontierctl", actions)
	if err != nil {
		return err
	}

	// Flags override the configured search budget; with neither set every plan is replayed.
	budget := search.Budget{MaxIterations: opts.maxIterations, MaxTime: opts.maxTime}
	if budget.MaxIterations <= 0 {
		budget.MaxIterations = cfg.Search.MaxIterations
	}
	if budget.MaxIterations <= 0 {
		budget.MaxIterations = len(pl.Plans)
	}
	if budget.MaxTime <= 0 {
		budget.MaxTime = cfg.SearchMaxTime()
	}

	start := time.Now()
	replayed := 0
	for i, p := range pl.Plans {
		if !budget.Continue(i, time.Since(start)) {
			break
		}
		if _, err := mgr.Ingest(ctx, run.ID, optimizer.PlanInput{
			ID:         p.ID,
			ParentID:   p.Parent,
			Cost:       p.Cost,
			Accuracy:   p.Accuracy,
			Action:     p.Action,
			ConfigPath: p.ConfigPath,
		}); err != nil {
			return fmt.Errorf("plan %d: %w", p.ID, err)
		}
		replayed++
	}

	rec, err := mgr.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	plans, err := mgr.Summary(ctx, run.ID)
	if err != nil {
		return err
	}
	rewards, err := mgr.ActionRewards(ctx, run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "replayed %d/%d plans from %q (%d failed) in %s\n\n",
		replayed, len(pl.Plans), pl.Name, rec.FailedPlans, time.Since(start).Round(time.Millisecond))
	if err := writePlanTable(out, plans); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := writeRewardTable(out, rewards); err != nil {
		return err
	}

	if opts.plot != "" {
		if err := render.SaveScatter(opts.plot, pl.Name, plans); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(out, "\nplot written to %s\n", opts.plot)
	}
	return nil
}

func writePlanTable(w io.Writer, plans []frontier.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tCOST\tACCURACY\tFRONTIER\tDISTANCE\tACTION")
	for _, p := range plans {
		mark := ""
		if p.OnFrontier {
			mark = "*"
		}
		action := p.Action
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(tw, "%d\t%.4g\t%.4f\t%s\t%.4f\t%s\n", p.ID, p.Cost, p.Accuracy, mark, p.Distance, action)
	}
	return tw.Flush()
}

func writeRewardTable(w io.Writer, rewards []frontier.ActionReward) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tREWARD\tUSES")
	for _, r := range rewards {
		fmt.Fprintf(tw, "%s\t%+.4f\t%d\n", r.Action, r.Reward, r.Uses)
	}
	return tw.Flush()
}
