package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/westernheights/website/cmd"
	"github.com/westernheights/website/internal/config"
	"github.com/westernheights/website/internal/repository"
	"github.com/westernheights/website/internal/services"
)

var (
	reportFormat string
	reportOut    string
)

// ReportCmd is the 'report' command printing the daily analytics report.
var ReportCmd = &cobra.Command{
	Use:   "report [date]",
	Short: "Print the daily analytics report",
	Long: `Computes the analytics report for the given calendar date (2006-01-02
format, default today). With --format the report is exported instead,
to stdout or to the file given by --out.

Example:
  website report 2024-01-05 --format csv --out report.csv`,
	Args: cobra.MaximumNArgs(1),
	Run:  runReport,
}

func init() {
	ReportCmd.Flags().StringVar(&reportFormat, "format", "", "Export format: json or csv")
	ReportCmd.Flags().StringVar(&reportOut, "out", "", "Write the export to this file instead of stdout")
	cmd.RootCmd.AddCommand(ReportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	date := time.Now().Format(services.DateLayout)
	if len(args) == 1 {
		date = args[0]
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying SQL database: %v", err)
	}
	defer sqlDB.Close()

	analyticsRepo := repository.NewAnalyticsRepository(db)
	analyticsService := services.NewAnalyticsService(analyticsRepo)

	report := analyticsService.DailyReport(date)

	if reportFormat != "" {
		popular := analyticsService.PopularPages(30, 20)
		out := os.Stdout
		if reportOut != "" {
			f, err := os.Create(reportOut)
			if err != nil {
				log.Fatalf("Failed to create output file: %v", err)
			}
			defer f.Close()
			out = f
		}
		if err := services.ExportReport(out, report, popular, reportFormat); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		return
	}

	fmt.Printf("Analytics report for %s\n", report.Date)
	fmt.Printf("Unique visitors: %d\n", report.UniqueVisitors)
	fmt.Printf("Total visits:    %d\n", report.TotalVisits)
	fmt.Printf("Conversions:     %d\n", report.Conversions)
	if len(report.TopPages) > 0 {
		fmt.Println("Top pages:")
		for _, page := range report.TopPages {
			fmt.Printf("  %6d  %s\n", page.Views, page.PageURL)
		}
	}
	if len(report.TopReferrers) > 0 {
		fmt.Println("Top referrers:")
		for _, ref := range report.TopReferrers {
			fmt.Printf("  %6d  %s\n", ref.Visits, ref.Referrer)
		}
	}
}
