package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cogstream/internal/catalog"
	"cogstream/internal/enumerate"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Maintain the dataset catalog used by catalog-backed products",
	}
	catalogCmd.AddCommand(newCatalogIndexCommand(ctx))
	catalogCmd.AddCommand(newCatalogCountCommand(ctx))
	return catalogCmd
}

func newCatalogIndexCommand(ctx *commandContext) *cobra.Command {
	var productName, root string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Record a product's source files and acquisition times in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := ctx.products()
			if err != nil {
				return err
			}
			prod, err := reg.Lookup(strings.TrimSpace(productName))
			if err != nil {
				return err
			}
			root = pick(root, prod.Source)
			if root == "" {
				return errors.New("no source root: pass --root or set the product source")
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			files, err := enumerate.Filesystem{
				Root:    root,
				Layout:  prod.Layout,
				Pattern: prod.Pattern,
				Workers: cfg.Pipeline.EnumerateWorkers,
				Logger:  logger,
			}.Enumerate(cmd.Context())
			if err != nil {
				return err
			}
			datasets, skipped := catalog.DatasetsFromFiles(files)

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()
			n, err := store.Upsert(cmd.Context(), prod.Name, datasets)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d datasets for %s from %s\n", n, prod.Name, root)
			if len(skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d files without a timestamp in their name\n", len(skipped))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&productName, "product", "p", "", "Product to index")
	cmd.Flags().StringVar(&root, "root", "", "Source root (defaults to the product source)")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func newCatalogCountCommand(ctx *commandContext) *cobra.Command {
	var productName string

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Report how many datasets the catalog holds for a product",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()
			name := strings.TrimSpace(productName)
			n, err := store.Count(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d datasets\n", name, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&productName, "product", "p", "", "Product to count")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}
