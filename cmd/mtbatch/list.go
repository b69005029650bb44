package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/microtravel/internal/cli"
)

func newListCmd(opts *options) *cobra.Command {
	var (
		collection string
		archived   string
		search     string
		page       int
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			if collection != "" {
				query.Set("collection", collection)
			}
			if archived != "" {
				query.Set("archived", archived)
			}
			if search != "" {
				query.Set("search", search)
			}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if pageSize > 0 {
				query.Set("page_size", strconv.Itoa(pageSize))
			}

			result, err := api.Images(cmd.Context(), query)
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection id or \"unassigned\"")
	cmd.Flags().StringVar(&archived, "archived", "", "true or false")
	cmd.Flags().StringVar(&search, "search", "", "filename or content type search")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "results per page")
	return cmd
}

func newBatchesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List server-side batches as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := opts.client()
			if err != nil {
				return err
			}

			snapshots, err := api.Batches(cmd.Context())
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), snapshots)
		},
	}
}
