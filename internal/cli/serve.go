package cli

import (
	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/cardgrid/internal/config"
	"github.com/gabrielmiguelok/cardgrid/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr   string
		source string
		codec  string
		watch  bool
		dev    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the card grid with live sessions",
		Long: `Serves the card grid page. Browsers connect back over WebSocket; card
clicks, viewport changes and reloads run on the server and the page is
re-rendered in place. With --watch, saving the content file reloads every
open page.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(root, func(c *config.Config) {
				flags := cmd.Flags()
				if flags.Changed("addr") {
					c.Server.Addr = addr
				}
				if flags.Changed("source") {
					c.Content.Source = source
				}
				if flags.Changed("codec") {
					c.Server.Codec = codec
				}
				if flags.Changed("watch") {
					c.Server.Watch = watch
				}
				if flags.Changed("dev") {
					c.Server.InsecureDev = dev
				}
			})
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, logger, Version)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "content document path or URL (overrides content.source)")
	cmd.Flags().StringVar(&codec, "codec", "", "default wire format: json or msgpack")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload open pages when the content file changes")
	cmd.Flags().BoolVar(&dev, "dev", false, "accept any WebSocket origin")

	return cmd
}
