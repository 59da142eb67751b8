package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/pkg/vango"
)

func demoCmd() *cobra.Command {
	var (
		list    bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "demo [scenario...]",
		Short: "Walk through reconciliation scenarios",
		Long: `Run reconciliation scenarios against an in-memory host and print
the patches, the resulting host tree and the encoded frame sizes.

Without arguments every scenario runs.

Examples:
  reconciler demo
  reconciler demo keyed positional
  reconciler demo --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if list {
				for _, sc := range scenarios {
					fmt.Fprintf(w, "  %-12s %s\n", sc.name, sc.description)
				}
				return nil
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return runDemo(w, logger, args)
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the available scenarios")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every render pass")

	return cmd
}

func runDemo(w io.Writer, logger *slog.Logger, names []string) error {
	selected := scenarios
	if len(names) > 0 {
		selected = nil
		for _, name := range names {
			sc, err := findScenario(name)
			if err != nil {
				return err
			}
			selected = append(selected, sc)
		}
	}

	for _, sc := range selected {
		fmt.Fprintf(w, "\n%s: %s\n", sc.name, sc.description)
		if err := runScenario(w, logger, sc); err != nil {
			return fmt.Errorf("scenario %s: %w", sc.name, err)
		}
	}
	return nil
}

func runScenario(w io.Writer, logger *slog.Logger, sc scenario) error {
	sched := vango.NewRenderScheduler()
	if err := sched.Init(); err != nil {
		return err
	}
	defer sched.Teardown()
	return sc.run(newDemo(w, sched, logger))
}
