package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main structure mapping the entire application configuration.
// It uses mapstructure tags to map YAML/JSON keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 8080)
		BaseURL string `mapstructure:"base_url"` // Public base URL, used in the sitemap
	} `mapstructure:"server"`

	// Database configuration section for the SQLite analytics store
	Database struct {
		Name string `mapstructure:"name"` // SQLite database file name
	} `mapstructure:"database"`

	// Contact configuration for form submissions and mail notifications
	Contact struct {
		SubmissionsDir string `mapstructure:"submissions_dir"` // Directory for flat-file submissions
		AdminEmail     string `mapstructure:"admin_email"`     // Recipient of notification mails
		CompanyEmail   string `mapstructure:"company_email"`   // From address
		SMTPServer     string `mapstructure:"smtp_server"`
		SMTPPort       int    `mapstructure:"smtp_port"`
		SMTPUsername   string `mapstructure:"smtp_username"`
		SMTPPassword   string `mapstructure:"smtp_password"`
		SaveToFile     bool   `mapstructure:"save_to_file"` // Persist submissions to disk
		SendEmail      bool   `mapstructure:"send_email"`   // Send notification/auto-reply mail
	} `mapstructure:"contact"`

	// Content configuration for the page/blog renderer
	Content struct {
		Dir   string `mapstructure:"dir"`   // Root of the content tree
		Watch bool   `mapstructure:"watch"` // Rebuild HTML when source files change
	} `mapstructure:"content"`
}

// LoadConfig loads the application configuration using Viper.
// A local .env file (if present) is read first so that SMTP credentials can be
// kept out of the YAML file; Viper then layers the config file, environment
// variables and defaults.
func LoadConfig() (*Config, error) {
	// .env is optional; ignore the error when the file does not exist
	_ = godotenv.Load()

	// Enable automatic environment variable binding, with dots replaced by
	// underscores (e.g. "contact.smtp_password" -> "CONTACT_SMTP_PASSWORD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Defaults are used when no config file is found or specific keys are missing
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "https://westernheights.inc")
	viper.SetDefault("database.name", "website_analytics.db")
	viper.SetDefault("contact.submissions_dir", "contact_submissions")
	viper.SetDefault("contact.admin_email", "admin@westernheights.inc")
	viper.SetDefault("contact.company_email", "info@westernheights.inc")
	viper.SetDefault("contact.smtp_server", "smtp.gmail.com")
	viper.SetDefault("contact.smtp_port", 587)
	viper.SetDefault("contact.save_to_file", true)
	viper.SetDefault("contact.send_email", false)
	viper.SetDefault("content.dir", "content")
	viper.SetDefault("content.watch", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Not fatal, the defaults above cover every key
			log.Println("Config file not found, using default values")
		} else {
			// Permissions, malformed YAML, etc. are fatal
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	log.Printf("Configuration loaded: Server Port=%d, DB Name=%s, Content Dir=%s",
		cfg.Server.Port, cfg.Database.Name, cfg.Content.Dir)

	return &cfg, nil
}
