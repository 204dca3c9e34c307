package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/westernheights/website/cmd"
	"github.com/westernheights/website/internal/config"
	"github.com/westernheights/website/internal/content"
)

// PublishCmd is the 'publish' command rendering the content tree.
var PublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Render all content to static HTML and refresh the sitemap.",
	Long: `Re-renders every service page and blog post under the content directory
to static HTML and regenerates sitemap.xml.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		manager := content.NewManager(cfg.Content.Dir, cfg.Server.BaseURL)
		if err := manager.EnsureLayout(); err != nil {
			log.Fatalf("Failed to prepare content directory: %v", err)
		}
		if err := manager.RebuildAll(); err != nil {
			log.Fatalf("Failed to render content: %v", err)
		}

		fmt.Println("Content rendered and sitemap refreshed.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(PublishCmd)
}
