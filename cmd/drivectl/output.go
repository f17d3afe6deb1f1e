package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// entry is the machine-readable form of a listed item.
type entry struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Folder   bool   `json:"folder" yaml:"folder"`
	Size     *int64 `json:"size,omitempty" yaml:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	Modified string `json:"modified,omitempty" yaml:"modified,omitempty"`
	WebURL   string `json:"web_url,omitempty" yaml:"web_url,omitempty"`
}

func toEntry(item models.Item) entry {
	e := entry{
		ID:       item.ID,
		Name:     item.Name,
		Folder:   item.IsFolder,
		Size:     item.Size,
		MimeType: item.MimeType,
		WebURL:   item.WebURL,
	}
	if item.ModifiedAt != nil {
		e.Modified = item.ModifiedAt.UTC().Format(time.RFC3339)
	}
	return e
}

// renderItems writes items to w in the given format.
func renderItems(w io.Writer, items []models.Item, format string) error {
	switch format {
	case "json":
		entries := make([]entry, 0, len(items))
		for _, item := range items {
			entries = append(entries, toEntry(item))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		entries := make([]entry, 0, len(items))
		for _, item := range items {
			entries = append(entries, toEntry(item))
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		return renderTable(w, items)
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

func renderTable(w io.Writer, items []models.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("(empty folder)"))
		return err
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d item(s)", len(items))))

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tID")
	for _, item := range items {
		name := item.Name
		if item.IsFolder {
			name = folderStyle.Render(name + "/")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, sizeText(item), modifiedText(item), item.ID)
	}
	return tw.Flush()
}

func sizeText(item models.Item) string {
	if item.IsFolder || item.Size == nil {
		return "-"
	}
	return humanize.IBytes(uint64(*item.Size))
}

func modifiedText(item models.Item) string {
	if item.ModifiedAt == nil {
		return "-"
	}
	return humanize.Time(*item.ModifiedAt)
}
