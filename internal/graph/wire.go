package graph

import (
	"time"

	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
)

// driveItem is the subset of Graph's driveItem resource we read.
type driveItem struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Size                 *int64     `json:"size"`
	CreatedDateTime      *time.Time `json:"createdDateTime"`
	LastModifiedDateTime *time.Time `json:"lastModifiedDateTime"`
	WebURL               string     `json:"webUrl"`
	File                 *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
	DownloadURL string `json:"@microsoft.graph.downloadUrl"`
}

type driveItemCollection struct {
	Value []driveItem `json:"value"`
}

type site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

type siteCollection struct {
	Value []site `json:"value"`
}

type drive struct {
	ID string `json:"id"`
}

type user struct {
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// newFolder is the body for creating a child folder.
type newFolder struct {
	Name             string   `json:"name"`
	Folder           struct{} `json:"folder"`
	ConflictBehavior string   `json:"@microsoft.graph.conflictBehavior"`
}

func toItem(d driveItem) models.Item {
	item := models.Item{
		ID:          d.ID,
		Name:        d.Name,
		IsFolder:    d.Folder != nil,
		CreatedAt:   d.CreatedDateTime,
		ModifiedAt:  d.LastModifiedDateTime,
		WebURL:      d.WebURL,
		DownloadURL: d.DownloadURL,
	}
	if !item.IsFolder {
		item.Size = d.Size
	}
	if d.File != nil {
		item.MimeType = d.File.MimeType
	}
	return item
}

func toSite(s site) models.Site {
	return models.Site{
		ID:          s.ID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		WebURL:      s.WebURL,
	}
}
