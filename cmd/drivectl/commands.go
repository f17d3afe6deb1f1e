package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
)

var (
	downloadDest string
	mkdirParent  string
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		items, err := listFolder(cmd, t, args)
		if err != nil {
			return err
		}
		return renderItems(cmd.OutOrStdout(), items, output)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [path]",
	Short: "Download every file in a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		items, err := listFolder(cmd, t, args)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(downloadDest, 0o755); err != nil {
			return fmt.Errorf("create destination: %w", err)
		}

		count := 0
		for _, item := range items {
			if item.IsFolder {
				continue
			}
			written, err := t.drive.DownloadTo(cmd.Context(), t.driveID, item.ID, downloadDest)
			if err != nil {
				return fmt.Errorf("download %s: %w", item.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", written)
			count++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %d file(s) to %s\n", count, downloadDest)
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload LOCAL [REMOTE_PATH]",
	Short: "Upload a local file",
	Long:  "Upload a local file. REMOTE_PATH defaults to the file name in the library root.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		remote := filepath.Base(args[0])
		if len(args) == 2 {
			remote = strings.Trim(args[1], "/")
			if strings.HasSuffix(args[1], "/") {
				remote = path.Join(remote, filepath.Base(args[0]))
			}
		}

		t, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		item, err := t.drive.UploadByPath(cmd.Context(), t.driveID, remote, data)
		if err != nil {
			return err
		}
		logging.Debug("uploaded", zap.String("item_id", item.ID), zap.String("path", remote))
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s) as %s\n", remote, humanize.IBytes(uint64(len(data))), item.ID)
		return nil
	},
}

var mkdirCmd = &cobra.Command{
	Use:   "mkdir NAME",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		item, err := t.drive.CreateFolder(cmd.Context(), t.driveID, mkdirParent, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created folder %s (%s)\n", item.Name, item.ID)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm ITEM_ID",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		if err := t.drive.Delete(cmd.Context(), t.driveID, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize ITEM_ID",
	Short: "Summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, err := connect(ctx)
		if err != nil {
			return err
		}
		item, err := t.drive.GetItem(ctx, t.driveID, args[0])
		if err != nil {
			return err
		}
		if item.IsFolder {
			return fmt.Errorf("%s is a folder", item.Name)
		}
		data, err := t.drive.Download(ctx, t.driveID, item.ID)
		if err != nil {
			return err
		}

		result := t.summarizer.Summarize(ctx, data, item.Name)
		if !result.Success {
			return errors.New(result.Error)
		}
		fmt.Fprintln(cmd.OutOrStdout(), headerStyle.Render(item.Name))
		fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
		return nil
	},
}

// listFolder lists the folder at args[0], or the drive root.
func listFolder(cmd *cobra.Command, t *target, args []string) ([]models.Item, error) {
	if len(args) == 1 && strings.Trim(args[0], "/") != "" {
		return t.drive.ListItemsByPath(cmd.Context(), t.driveID, strings.Trim(args[0], "/"))
	}
	return t.drive.ListItems(cmd.Context(), t.driveID, "root")
}

func init() {
	downloadCmd.Flags().StringVar(&downloadDest, "dest", ".", "Destination directory")
	mkdirCmd.Flags().StringVar(&mkdirParent, "parent", "root", "Parent folder ID")

	rootCmd.AddCommand(lsCmd, downloadCmd, uploadCmd, mkdirCmd, rmCmd, summarizeCmd)
}
