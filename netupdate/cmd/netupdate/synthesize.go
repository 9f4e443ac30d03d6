// Copyright 2026 ETH Zurich
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/netupdate/netupdate/netupdate/config"
	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/private/processmetrics"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/private/util"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/app/command"
	"github.com/netupdate/netupdate/private/app/flag"
	"github.com/netupdate/netupdate/private/env"
	"github.com/netupdate/netupdate/private/exec"
	"github.com/netupdate/netupdate/private/scenario"
	"github.com/netupdate/netupdate/private/synth"
)

type synthesizeFlags struct {
	scenario string
	strategy strategy.Kind
	budget   util.DurWrap
	verify   bool
	critical bool
	format   string
	noColor  bool
}

func newSynthesize(pather command.Pather) *cobra.Command {
	var envFlags flag.Environment
	var flags synthesizeFlags

	var cmd = &cobra.Command{
		Use:   "synthesize --scenario <file>",
		Short: "Order the changes of a migration scenario",
		Example: fmt.Sprintf(`  %[1]s synthesize --scenario sigcomm.toml
  %[1]s synthesize --scenario sigcomm.toml --strategy linear --verify
  %[1]s synthesize -c netupdate.toml --scenario sigcomm.toml --format json`,
			pather.CommandPath()),
		Long: `'synthesize' loads a scenario and orders the changes from its initial to
its final configuration.

The output lists every change with the level it can be deployed in and the
changes it must wait for. With --critical-path the deployment is simulated to
measure the longest chain of dependent changes. With --verify the changes are
applied in one topological order and the policy is checked in every state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			cfg, err := config.Load(envFlags.ConfigFile())
			if err != nil {
				return err
			}
			if level, ok := envFlags.LogLevel(); ok {
				cfg.Logging.Level = level
			}
			fs := cmd.Flags()
			if fs.Changed("strategy") {
				cfg.Synthesis.Strategy = flags.strategy
			}
			if fs.Changed("budget") {
				cfg.Synthesis.Budget = flags.budget
			}
			if fs.Changed("verify") {
				cfg.Synthesis.Verify = flags.verify
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !slices.Contains([]string{"human", "json", "yaml"}, flags.format) {
				return serrors.New("format not supported", "format", flags.format)
			}
			cmd.SilenceUsage = true

			if err := cfg.Logging.Setup(); err != nil {
				return serrors.Wrap("setting up logging", err)
			}
			closer, err := env.InitTracer(cfg.Tracing, "netupdate")
			if err != nil {
				return serrors.Wrap("initializing tracer", err)
			}
			defer closer.Close()
			return runSynthesize(cmd.Context(), cmd.OutOrStdout(), cfg, flags)
		},
	}

	envFlags.Register(cmd.Flags())
	cmd.Flags().StringVar(&flags.scenario, "scenario", "", "Scenario file (TOML)")
	flag.KindVarP(cmd.Flags(), &flags.strategy, "strategy", "s",
		"Strategy: zone or linear (overrides the configuration)")
	cmd.Flags().Var(&flags.budget, "budget",
		"Time budget, e.g. 30s (overrides the configuration)")
	cmd.Flags().BoolVar(&flags.verify, "verify", false,
		"Check the policy along one topological order of the result")
	cmd.Flags().BoolVar(&flags.critical, "critical-path", false,
		"Measure the critical path of the result")
	cmd.Flags().StringVar(&flags.format, "format", "human",
		"Output format: human, json or yaml")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

type step struct {
	ID       strategy.ConfigID   `json:"id" yaml:"id"`
	Level    int                 `json:"level" yaml:"level"`
	Modifier string              `json:"modifier" yaml:"modifier"`
	After    []strategy.ConfigID `json:"after" yaml:"after"`
}

type result struct {
	Strategy     string  `json:"strategy" yaml:"strategy"`
	Steps        []step  `json:"steps" yaml:"steps"`
	Levels       int     `json:"levels" yaml:"levels"`
	CriticalPath *string `json:"critical_path,omitempty" yaml:"critical_path,omitempty"`
	Verified     *bool   `json:"verified,omitempty" yaml:"verified,omitempty"`
	Violation    string  `json:"violation,omitempty" yaml:"violation,omitempty"`
}

func runSynthesize(ctx context.Context, w io.Writer, cfg config.Config,
	flags synthesizeFlags) error {

	span, ctx := opentracing.StartSpanFromContext(ctx, "synthesize")
	defer span.Finish()
	logger := log.FromCtx(ctx)

	sc, err := scenario.LoadFile(flags.scenario)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewSynthesis(metrics.ApplyOptions(metrics.WithRegistry(reg)).Auto())
	if cfg.Metrics.Prometheus != "" {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if err := processmetrics.Register(reg); err != nil {
			logger.Info("Process scheduling metrics not available", "err", err)
		}
	}

	var res *synth.Result
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()
	g.Go(func() error {
		return cfg.Metrics.ServePrometheus(serveCtx, reg)
	})
	g.Go(func() error {
		defer stopServing()
		var err error
		res, err = synth.Synthesize(gctx, cfg.Synthesis.Strategy, sc.Net, sc.Final, sc.Policy,
			synth.Options{
				Budget:      cfg.Synthesis.Budget.Duration,
				Parallelism: cfg.Synthesis.Parallelism,
				Metrics:     m,
			})
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	report, err := exec.Deployer{}.Deploy(ctx, res.DAG, res.Modifiers, sc.Net.Clone())
	if err != nil {
		return err
	}
	out := result{Strategy: cfg.Synthesis.Strategy.String(), Levels: len(report.Levels)}
	for level, ids := range report.Levels {
		for _, id := range ids {
			prev, err := res.DAG.PrevOf(id)
			if err != nil {
				return err
			}
			slices.Sort(prev)
			out.Steps = append(out.Steps, step{
				ID:       id,
				Level:    level,
				Modifier: describe(sc, res.Modifiers[id]),
				After:    prev,
			})
		}
	}
	if flags.critical {
		d, err := exec.MaxDepth{}.Execute(ctx, res.DAG, res.Modifiers, sc.Net.Clone())
		if err != nil {
			return err
		}
		s := d.Round(time.Microsecond).String()
		out.CriticalPath = &s
	}
	var verifyErr error
	if cfg.Synthesis.Verify {
		verifyErr = exec.Verify(ctx, res.DAG, res.Modifiers, sc.Net, sc.Policy)
		ok := verifyErr == nil
		out.Verified = &ok
		if verifyErr != nil {
			out.Violation = verifyErr.Error()
			logger.Error("Verification failed", "err", verifyErr)
		}
	}

	switch flags.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(out); err != nil {
			return err
		}
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(out); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	default:
		printHuman(w, out, !flags.noColor && isTerminal(w))
	}
	if verifyErr != nil {
		return serrors.Wrap("verification failed", verifyErr)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func printHuman(w io.Writer, out result, colored bool) {
	header := color.New(color.FgHiBlack)
	statusGood := color.New(color.FgGreen)
	statusBad := color.New(color.FgRed)
	for _, c := range []*color.Color{header, statusGood, statusBad} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	header.Fprintf(w, "Strategy: %s, %d changes in %d levels\n\n",
		out.Strategy, len(out.Steps), out.Levels)
	rows := make([][]string, 0, len(out.Steps))
	for _, s := range out.Steps {
		after := make([]string, len(s.After))
		for i, id := range s.After {
			after[i] = strconv.Itoa(id)
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Level), strconv.Itoa(s.ID), s.Modifier, strings.Join(after, ","),
		})
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"LEVEL", "ID", "CHANGE", "AFTER"})
	table.AppendBulk(rows)
	table.Render()

	if out.CriticalPath != nil {
		fmt.Fprintf(w, "\nCritical path: %s\n", *out.CriticalPath)
	}
	if out.Verified != nil {
		fmt.Fprint(w, "\nVerification: ")
		if *out.Verified {
			statusGood.Fprintln(w, "ok")
		} else {
			statusBad.Fprintf(w, "failed: %s\n", out.Violation)
		}
	}
}
