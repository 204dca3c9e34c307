package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/westernheights/website/cmd"
	"github.com/westernheights/website/internal/api"
	"github.com/westernheights/website/internal/config"
	"github.com/westernheights/website/internal/content"
	"github.com/westernheights/website/internal/mailer"
	"github.com/westernheights/website/internal/models"
	"github.com/westernheights/website/internal/repository"
	"github.com/westernheights/website/internal/services"
	"github.com/westernheights/website/internal/watcher"
)

// RunServerCmd is the Cobra 'run-server' command, the entry point for
// serving the website backend.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the website API server.",
	Long: `This command initializes the analytics database, wires the contact and
content services, optionally starts the content watcher, then launches
the HTTP server.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		db, err := gorm.Open(sqlite.Open(cfg.Database.Name), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := db.AutoMigrate(&models.PageView{}, &models.Session{}, &models.Conversion{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		analyticsRepo := repository.NewAnalyticsRepository(db)
		analyticsService := services.NewAnalyticsService(analyticsRepo)
		log.Println("Analytics store initialized.")

		var m mailer.Mailer = mailer.NoopMailer{}
		if cfg.Contact.SendEmail {
			m = mailer.NewSMTPMailer(cfg.Contact.SMTPServer, cfg.Contact.SMTPPort,
				cfg.Contact.SMTPUsername, cfg.Contact.SMTPPassword, cfg.Contact.CompanyEmail)
		}
		contactService := services.NewContactService(cfg.Contact.SubmissionsDir,
			cfg.Contact.AdminEmail, m, cfg.Contact.SaveToFile, cfg.Contact.SendEmail)
		log.Println("Contact service initialized.")

		manager := content.NewManager(cfg.Content.Dir, cfg.Server.BaseURL)
		if err := manager.EnsureLayout(); err != nil {
			log.Fatalf("Failed to prepare content directory: %v", err)
		}
		if cfg.Content.Watch {
			contentWatcher := watcher.NewContentWatcher(manager)
			go contentWatcher.Start()
		}

		router := gin.Default()
		api.SetupRoutes(router, analyticsService, contactService, manager)
		log.Println("API routes configured.")

		serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
		srv := &http.Server{
			Addr:    serverAddr,
			Handler: router,
		}

		go func() {
			log.Printf("Starting server on %s", serverAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()

		// Graceful shutdown on SIGINT/SIGTERM
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received. Stopping server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}

		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		log.Println("Server stopped cleanly.")
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
