package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"packrat/internal/browser"
	"packrat/internal/catalog"
	"packrat/internal/mapping"
	"packrat/internal/pipeline"
	"packrat/internal/resolver"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "List every pack reachable from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.env()
			if err != nil {
				return err
			}
			var refs []catalog.CollectionRef
			err = ctx.withSession(cmd, func(runCtx context.Context, page browser.Page) error {
				crawled, err := catalog.NewCrawler(cfg, logger).Crawl(runCtx, page, cfg.SiteURL(cfg.Site.CatalogPath))
				refs = catalog.MergePacks(crawled, cfg.Site.Packs)
				if err != nil && len(refs) == 0 {
					return err
				}
				return nil
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, refs)
			}
			rows := make([][]string, 0, len(refs))
			for _, ref := range refs {
				rows = append(rows, []string{ref.Slug, ref.Name, ref.Path})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Slug", "Name", "Path"}, rows, nil))
			fmt.Fprintf(out, "%d packs\n", len(refs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output packs as JSON")
	return cmd
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "items <pack>",
		Short: "List the items extracted from one pack page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := strings.ToLower(strings.TrimSpace(args[0]))
			if !catalog.ValidSlug(slug) {
				return fmt.Errorf("invalid pack slug %q", args[0])
			}
			cfg, logger, err := ctx.env()
			if err != nil {
				return err
			}
			collection := catalog.NewCollection(slug, "")
			var items []catalog.ItemRef
			err = ctx.withSession(cmd, func(runCtx context.Context, page browser.Page) error {
				// items needs no store or resolver
				runner := pipeline.New(cfg, nil, nil, nil, logger)
				var err error
				items, err = runner.Items(runCtx, page, collection)
				return err
			})
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, items)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{item.Slug, item.Path})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Slug", "Path"}, rows, nil))
			fmt.Fprintf(out, "%d items in %s\n", len(items), collection.Slug)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output items as JSON")
	return cmd
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var downloadPack string

	cmd := &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Resolve one item to its identifier and signed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug := strings.ToLower(strings.TrimSpace(args[0]))
			if !catalog.ValidSlug(slug) {
				return fmt.Errorf("invalid item slug %q", args[0])
			}
			cfg, logger, err := ctx.env()
			if err != nil {
				return err
			}

			var res resolver.Result
			err = ctx.withSession(cmd, func(runCtx context.Context, page browser.Page) error {
				var err error
				res, err = resolver.New(cfg, logger).Resolve(runCtx, page, slug)
				return err
			})
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, res); err != nil {
				return err
			}
			if recorded, ok := mapping.Open(cfg.MappingPath(), logger).Lookup(slug); ok && recorded != res.Identifier {
				fmt.Fprintf(cmd.ErrOrStderr(), "Mapping records %s as %s; resolved %s\n", slug, recorded, res.Identifier)
			}

			pack := strings.ToLower(strings.TrimSpace(downloadPack))
			if pack == "" {
				return nil
			}
			if !catalog.ValidSlug(pack) {
				return fmt.Errorf("invalid pack slug %q", downloadPack)
			}
			lock, err := ctx.acquireLock()
			if err != nil {
				return err
			}
			defer lock.Release()
			store, err := ctx.assetStore()
			if err != nil {
				return err
			}
			file, err := store.Store(cmd.Context(), catalog.NewItem(slug, catalog.NewCollection(pack, "")), res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%d bytes)\n", file.Path, file.Size)
			return nil
		},
	}
	cmd.Flags().StringVar(&downloadPack, "download", "", "Also download the asset into this pack's directory")
	return cmd
}
