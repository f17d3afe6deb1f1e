// Package models contains the drive value types shared by the explorer packages.
package models

import (
	"strings"
	"time"
)

// Item describes a file or folder in a drive. Items are built fresh from each
// Graph response and never mutated.
type Item struct {
	ID          string
	Name        string
	Size        *int64 // nil when the remote omits it
	MimeType    string // files only
	IsFolder    bool
	CreatedAt   *time.Time
	ModifiedAt  *time.Time
	WebURL      string
	DownloadURL string // short-lived, only when returned inline
}

// IsFile reports whether the item is a file.
func (i Item) IsFile() bool {
	return !i.IsFolder
}

// Folder is a folder together with the children fetched in one listing call.
type Folder struct {
	ID       string
	Name     string
	WebURL   string
	Children []Item
}

// Site is a SharePoint site. Descriptive only.
type Site struct {
	ID          string
	Name        string
	DisplayName string
	WebURL      string
}

// Extension returns the last extension of name including the dot,
// or "" when name has none.
func Extension(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot == -1 {
		return ""
	}
	return name[dot:]
}
