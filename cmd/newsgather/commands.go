package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tkrnews/newsgather/internal/api"
	"github.com/tkrnews/newsgather/internal/app"
	"github.com/tkrnews/newsgather/internal/metrics"
	"github.com/tkrnews/newsgather/internal/region"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, svc, err := setup(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if addr == "" {
				addr = cfg.Addr()
			}
			return api.NewServer(svc, log, metrics.Global).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default API_HOST:API_PORT)")
	return cmd
}

func fetchCmd() *cobra.Command {
	var (
		limit  int
		scrape bool
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <province>",
		Short: "Fetch recent news for a province",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, svc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Fetch(cmd.Context(), args[0], app.FetchOptions{Limit: limit, Enrich: scrape, Save: save})
			if err != nil {
				return err
			}
			return writeJSON(res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultNewsLimit, "number of articles (max 50)")
	cmd.Flags().BoolVar(&scrape, "scrape", true, "scrape full article text")
	cmd.Flags().BoolVar(&save, "save", false, "persist the session to the configured store")
	return cmd
}

func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <url>...",
		Short: "Extract article content from URLs (max 20)",
		Args:  cobra.RangeArgs(1, app.MaxScrapeURLs),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, svc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Scrape(cmd.Context(), args)
			if err != nil {
				return err
			}
			return writeJSON(res)
		},
	}
}

func processCmd() *cobra.Command {
	var (
		limit  int
		scrape bool
	)
	cmd := &cobra.Command{
		Use:   "process <province> <anchor|friend|newsreel>",
		Short: "Fetch a province's news and narrate it with a host personality",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, svc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if limit > api.MaxProcessLimit {
				limit = api.MaxProcessLimit
			}
			res, err := svc.FetchAndRewrite(cmd.Context(), args[0], args[1], app.FetchOptions{Limit: limit, Enrich: scrape})
			if err != nil {
				return err
			}
			return writeJSON(res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultProcessLimit, "number of articles (max 20)")
	cmd.Flags().BoolVar(&scrape, "scrape", true, "scrape full article text before narrating")
	return cmd
}

func pipelineCmd() *cobra.Command {
	var (
		limit  int
		scrape bool
		hosts  []string
	)
	cmd := &cobra.Command{
		Use:   "pipeline <province>",
		Short: "Fetch and save a province's news once, then narrate it with several hosts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, svc, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if limit > api.MaxProcessLimit {
				limit = api.MaxProcessLimit
			}
			res, err := svc.FetchAndRewriteAll(cmd.Context(), args[0], hosts, app.FetchOptions{Limit: limit, Enrich: scrape})
			if err != nil {
				return err
			}
			return writeJSON(res)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", api.DefaultPipelineLimit, "number of articles (max 20)")
	cmd.Flags().BoolVar(&scrape, "scrape", true, "scrape full article text before narrating")
	cmd.Flags().StringSliceVar(&hosts, "hosts", nil, "host personalities to narrate with (default all)")
	return cmd
}

func regionsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List supported provinces and territories",
		RunE: func(cmd *cobra.Command, args []string) error {
			regions := region.Default().All()
			if asJSON {
				return writeJSON(api.ProvincesOutput{Provinces: regions, Total: len(regions)})
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tABBR\tCITIES")
			for _, r := range regions {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Name, r.Abbr, len(r.Cities))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
