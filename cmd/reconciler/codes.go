package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reconciler/internal/errors"
)

func codesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes [code]",
		Short: "List diagnostic codes",
		Long: `List every diagnostic code, or explain one.

Examples:
  reconciler codes
  reconciler codes R004`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				if _, ok := errors.GetTemplate(args[0]); !ok {
					return errors.Newf(errors.CategoryCLI, "unknown code %q", args[0])
				}
				fmt.Fprint(w, errors.New(args[0]).Format())
				return nil
			}
			for _, code := range errors.GetAllCodes() {
				tmpl, _ := errors.GetTemplate(code)
				fmt.Fprintf(w, "  %s  %-10s %s\n", code, tmpl.Category, tmpl.Message)
			}
			return nil
		},
	}
}
