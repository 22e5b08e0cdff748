package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/cardgrid/internal/config"
)

// sampleContent is written by init --sample.
const sampleContent = `{
  "meta": {
    "title": "課程總覽｜https://example.com",
    "subtitle": "點選卡片查看重點",
    "colorPalette": {
      "primary": "#2d5be3",
      "background": "#f5f5f7",
      "cardBackground": "#ffffff"
    },
    "styles": {
      "pageTitle": {"color": "@primary"},
      "cardContainer": {"borderColor": "@primary", "borderWidth": "1px", "borderRadius": "12px"}
    }
  },
  "cards": [
    {
      "id": "intro",
      "section": "基礎",
      "title": "入門",
      "tagline": "從零開始",
      "points": ["安裝", "第一個頁面"]
    },
    {
      "id": "advanced",
      "section": "進階",
      "title": "進階主題",
      "tagline": "深入了解",
      "points": ["樣式", "即時更新"]
    }
  ]
}
`

func newInitCmd(root *rootOptions) *cobra.Command {
	var (
		force  bool
		sample bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default cardgrid configuration",
		Long:  `Writes the default configuration to the --config path. With --sample, also writes an example content document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()

			if err := writeNew(root.cfgFile, force, cfg.Save); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", root.cfgFile)

			if sample {
				err := writeNew(cfg.Content.Source, force, func(path string) error {
					return os.WriteFile(path, []byte(sampleContent), 0644)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.Content.Source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	cmd.Flags().BoolVar(&sample, "sample", false, "also write an example content document")

	return cmd
}

func writeNew(path string, force bool, write func(string) error) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	return write(path)
}
