package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"formprobe/internal/core"
	"formprobe/internal/server"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser status interface",
	Long: `Serve starts the HTTP interface: a status page to start a crawl of a target,
scan the discovered forms, stop the active phase and watch progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg := settings
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		p, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close()

		defaultURL := cfg.Server.DefaultURL
		if cfg.Target.URL != "" {
			defaultURL = cfg.Target.URL
		}

		coord := core.NewCoordinator(p.crawler, p.engine, cfg.Target.MaxURLs)
		return server.New(coord, defaultURL).ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
