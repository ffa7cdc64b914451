package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cogstream/internal/product"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List the configured products",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.products()
			if err != nil {
				return err
			}
			rows := make([][]string, 0)
			for _, name := range reg.Names() {
				p, err := reg.Lookup(name)
				if err != nil {
					return err
				}
				source := p.Source
				if p.Enumeration == product.SourceCatalog {
					source = "catalog"
				}
				rows = append(rows, []string{p.Name, p.DisplayTitle(), product.LayoutName(p.Layout), p.Prefix, source})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				{Title: "Product"},
				{Title: "Title"},
				{Title: "Layout"},
				{Title: "Prefix"},
				{Title: "Source"},
			}, rows))
			return nil
		},
	}
}
