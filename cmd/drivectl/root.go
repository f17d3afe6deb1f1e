package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/auth"
	"github.com/LeonardHd/maf-onedrive-integration/internal/config"
	"github.com/LeonardHd/maf-onedrive-integration/internal/graph"
	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
	"github.com/LeonardHd/maf-onedrive-integration/internal/summary"
)

var (
	verbose  bool
	logLevel string
	hostname string
	sitePath string
	driveID  string
	output   string
)

// driveService is the part of the Graph client the commands use.
type driveService interface {
	ListItems(ctx context.Context, driveID, folderID string) ([]models.Item, error)
	ListItemsByPath(ctx context.Context, driveID, path string) ([]models.Item, error)
	GetItem(ctx context.Context, driveID, itemID string) (models.Item, error)
	Download(ctx context.Context, driveID, itemID string) ([]byte, error)
	DownloadTo(ctx context.Context, driveID, itemID, dest string) (string, error)
	UploadByPath(ctx context.Context, driveID, remotePath string, data []byte) (models.Item, error)
	CreateFolder(ctx context.Context, driveID, parentID, name string) (models.Item, error)
	Delete(ctx context.Context, driveID, itemID string) error
}

type summarizer interface {
	Summarize(ctx context.Context, data []byte, filename string) summary.Result
}

// target is a connected drive.
type target struct {
	drive      driveService
	driveID    string
	summarizer summarizer
}

// connect signs in with the application credential and resolves the drive
// named by the flags. Replaced in tests.
var connect = func(ctx context.Context) (*target, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	entra := auth.NewEntra(ctx, auth.EntraConfig{
		ClientID:      cfg.ApplicationID,
		ClientSecret:  cfg.ApplicationSecret,
		TenantID:      cfg.TenantID,
		AuthorityHost: cfg.AuthorityHost,
		Discovery:     cfg.OIDCDiscovery,
	})
	cred, err := entra.AppCredential(ctx)
	if err != nil {
		return nil, err
	}
	client := graph.New(cred, graph.Config{
		BaseURL: cfg.GraphBaseURL,
		Timeout: cfg.GraphTimeout,
	})

	id := driveID
	if id == "" {
		if hostname == "" || sitePath == "" {
			return nil, errors.New("set --drive, or both --host and --site-path")
		}
		if id, err = client.ResolveSiteDrive(ctx, hostname, sitePath); err != nil {
			return nil, fmt.Errorf("resolve site drive: %w", err)
		}
		logging.Debug("resolved site drive",
			zap.String("host", hostname),
			zap.String("site", sitePath),
			zap.String("drive_id", id))
	}

	return &target{
		drive:   client,
		driveID: id,
		summarizer: summary.NewPipeline(summary.NewChatSummarizer(summary.ChatConfig{
			Token:   cfg.ModelToken,
			ModelID: cfg.ModelID,
			BaseURL: cfg.ModelBaseURL,
		}), cfg.SummaryMaxInput),
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "drivectl",
	Short: "Operate on a SharePoint document library with app-only credentials",
	Long: `drivectl lists, transfers and summarizes files in a SharePoint document
library or OneDrive, acting as the registered application rather than a user.

Credentials come from APPLICATION_ID, APPLICATION_SECRET and TENANT_ID. The
drive is chosen with --drive, or resolved from --host and --site-path.

Quick Start:
  drivectl ls                         # List the library root
  drivectl ls "Shared Documents/Q1"   # List a folder
  drivectl download Reports --dest .  # Download every file in a folder
  drivectl summarize <item-id>        # Summarize a document`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		if err := logging.Init(logging.Config{Level: level, Format: "console"}); err != nil {
			return err
		}
		if logLevel != "" {
			logging.SetLevel(logLevel)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides --verbose")
	flags.StringVar(&hostname, "host", os.Getenv("SHAREPOINT_HOSTNAME"), "SharePoint hostname, e.g. contoso.sharepoint.com")
	flags.StringVar(&sitePath, "site-path", os.Getenv("SHAREPOINT_SITE_PATH"), "Site path, e.g. sites/team")
	flags.StringVar(&driveID, "drive", "", "Drive ID (skips site resolution)")
	flags.StringVarP(&output, "output", "o", "table", "Output format: table, json, yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
