package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cogstream/internal/preflight"
	"cogstream/internal/product"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var productName string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, free space, products, and external commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var prod *product.Product
			if name := strings.TrimSpace(productName); name != "" {
				reg, err := ctx.products()
				if err != nil {
					return err
				}
				p, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				prod = &p
			}

			results := preflight.RunAll(cmd.Context(), cfg, prod)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderSectionHeader("Preflight", colorize))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&productName, "product", "p", "", "Also check this product's source root")
	return cmd
}
