// Package protocol defines the API request/response types.
package protocol

import (
	"time"

	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
)

// ErrorResponse is returned on API errors.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        int    `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
}

// MeResponse is returned by GET /api/me
type MeResponse struct {
	Name string `json:"name"`
}

// SiteInfo is one entry of GET /api/sites
type SiteInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	WebURL      string `json:"web_url"`
}

// FileInfo is one entry of GET /api/files
type FileInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Size       *int64  `json:"size"`
	IsFolder   bool    `json:"is_folder"`
	MimeType   *string `json:"mime_type"`
	ModifiedAt *string `json:"modified_at"`
	WebURL     *string `json:"web_url"`
}

// SummaryResponse is returned by POST /api/summarize
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// NewSiteInfo converts a site to its wire form.
func NewSiteInfo(s models.Site) SiteInfo {
	return SiteInfo{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		WebURL:      s.WebURL,
	}
}

// NewFileInfo converts an item to its wire form. Absent optional fields
// encode as null; modified_at is ISO-8601.
func NewFileInfo(item models.Item) FileInfo {
	info := FileInfo{
		ID:       item.ID,
		Name:     item.Name,
		Size:     item.Size,
		IsFolder: item.IsFolder,
		MimeType: optional(item.MimeType),
		WebURL:   optional(item.WebURL),
	}
	if item.ModifiedAt != nil {
		ts := item.ModifiedAt.Format(time.RFC3339)
		info.ModifiedAt = &ts
	}
	return info
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
