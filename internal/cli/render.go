package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/cardgrid/internal/config"
	"github.com/gabrielmiguelok/cardgrid/internal/gridview"
	"github.com/gabrielmiguelok/cardgrid/internal/server"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
)

type renderOptions struct {
	source string
	shell  string
	output string
	width  int
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Load the content document once and write the page HTML",
		Long: `Runs one load of the content document into the page template and writes
the resulting HTML to stdout or --output. When loading fails the page is
still written, with the error message in the grid, and the command exits
non-zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(root, func(c *config.Config) {
				if opts.source != "" {
					c.Content.Source = opts.source
				}
				if opts.shell != "" {
					c.Page.Shell = opts.shell
				}
			})
			if err != nil {
				return err
			}
			return runRender(cmd, cfg, logger, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "content document path or URL (overrides content.source)")
	cmd.Flags().StringVar(&opts.shell, "shell", "", "page template file (overrides page.shell)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().IntVar(&opts.width, "width", gridview.DefaultViewportWidth, "viewport width used for the accordion mode")

	return cmd
}

func runRender(cmd *cobra.Command, cfg *config.Config, logger logging.Logger, opts *renderOptions) error {
	shell, err := server.ReadShell(cfg.Page.Shell)
	if err != nil {
		return err
	}

	p := dom.NewPage()
	if shell != nil {
		if p, err = dom.ParsePageBytes(shell); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeouts().ComponentMount)
	defer cancel()

	res, loadErr := server.NewLoader(cfg, logger).Load(ctx, p, opts.width)

	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	if opts.output == "" {
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return err
		}
	} else if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}

	if loadErr != nil {
		return loadErr
	}
	logger.Info("page rendered",
		logging.String("source", cfg.Content.Source),
		logging.Int("cards", res.State.Len()),
		logging.Bool("narrow", res.Accordion.Narrow()),
	)
	return nil
}
