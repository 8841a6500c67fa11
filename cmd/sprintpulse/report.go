package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprintpulse/sprintpulse/pkg/analytics"
	"github.com/sprintpulse/sprintpulse/pkg/config"
	"github.com/sprintpulse/sprintpulse/pkg/sprint"
	"github.com/sprintpulse/sprintpulse/pkg/surface"
)

// reportOpts are the flags shared by every report command.
type reportOpts struct {
	batchFiles []string
	outputFmt  string
	configPath string
	startDate  string
	endDate    string
}

func (o *reportOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&o.batchFiles, "batch", nil, "Sprint batch file (repeatable, required)")
	cmd.Flags().StringVar(&o.outputFmt, "output", "text", "Output format: text or json")
	cmd.Flags().StringVar(&o.configPath, "config", "", "Path to config file (default: search for .sprintpulse/config.yaml)")
	cmd.Flags().StringVar(&o.startDate, "start-date", "", "Only sprints starting on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.endDate, "end-date", "", "Only sprints starting on or before this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("batch")
}

// loaded is the in-window data of a report run.
type loaded struct {
	engine   *analytics.Engine
	renderer surface.Renderer
	batches  []sprint.SprintBatch
	issues   map[string][]sprint.Issue
}

func (o *reportOpts) load(cmd *cobra.Command) (*loaded, error) {
	renderer, ok := surface.ForFormat(o.outputFmt)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want text or json)", o.outputFmt)
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	win := sprint.ParseWindow(o.startDate, o.endDate)
	l := &loaded{
		engine:   cfg.Engine(),
		renderer: renderer,
		issues:   make(map[string][]sprint.Issue),
	}
	for _, path := range o.batchFiles {
		bf, err := sprint.LoadBatchFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if _, dup := l.issues[bf.Batch.ID]; dup {
			return nil, fmt.Errorf("%s: batch id %q already loaded", path, bf.Batch.ID)
		}
		l.issues[bf.Batch.ID] = bf.Issues
		if win.Contains(bf.Batch.StartDate) {
			l.batches = append(l.batches, bf.Batch)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Loaded %d of %d batch(es) in range\n", len(l.batches), len(o.batchFiles))
	return l, nil
}

// loadConfig reads an explicit config path, or searches upwards from the
// working directory.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultConfig(), nil
	}
	cfgFile := config.FindConfigFile(wd)
	if cfgFile == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func newVelocityCmd() *cobra.Command {
	var opts reportOpts
	cmd := &cobra.Command{
		Use:   "velocity",
		Short: "Planned vs. completed effort per sprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.load(cmd)
			if err != nil {
				return err
			}
			records := l.engine.VelocityHistory(l.batches, l.issues)
			return l.renderer.RenderVelocity(cmd.OutOrStdout(), records)
		},
	}
	opts.register(cmd)
	return cmd
}

func newBurndownCmd() *cobra.Command {
	var (
		opts       reportOpts
		sprintName string
		asOf       string
	)
	cmd := &cobra.Command{
		Use:   "burndown",
		Short: "Burndown curve and health for one sprint",
		Long: `Charts the most recent sprint in range, or the one named by --sprint.
Time pressure is measured against --as-of (default: now).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.load(cmd)
			if err != nil {
				return err
			}

			target, ok := pickSprint(l.batches, sprintName)
			if !ok {
				if sprintName != "" {
					return fmt.Errorf("no sprint named %q in range", sprintName)
				}
				return fmt.Errorf("no sprints in range")
			}

			at := time.Now()
			if asOf != "" {
				parsed, ok := sprint.ParseDate(asOf)
				if !ok {
					return fmt.Errorf("invalid --as-of date %q", asOf)
				}
				at = parsed
			}

			report := l.engine.Burndown(analytics.BurndownInput{
				Batch:  target,
				Issues: l.issues[target.ID],
				AsOf:   at,
			})
			return l.renderer.RenderBurndown(cmd.OutOrStdout(), &report)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&sprintName, "sprint", "", "Sprint name (default: latest in range)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Date to measure time pressure against (YYYY-MM-DD)")
	return cmd
}

func pickSprint(batches []sprint.SprintBatch, name string) (sprint.SprintBatch, bool) {
	if name == "" {
		return sprint.Latest(batches)
	}
	var named []sprint.SprintBatch
	for _, b := range batches {
		if b.Sprint == name {
			named = append(named, b)
		}
	}
	return sprint.Latest(named)
}

func newQualityCmd() *cobra.Command {
	var opts reportOpts
	cmd := &cobra.Command{
		Use:   "quality",
		Short: "Defect breakdown, quality gates and prevention effectiveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.load(cmd)
			if err != nil {
				return err
			}
			var all []sprint.Issue
			for _, b := range l.batches {
				all = append(all, l.issues[b.ID]...)
			}
			report := l.engine.Quality(all)
			return l.renderer.RenderQuality(cmd.OutOrStdout(), &report)
		},
	}
	opts.register(cmd)
	return cmd
}
