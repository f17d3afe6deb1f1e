package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
)

// ─── User & sites ───────────────────────────────────────────────────────────

// GetUserDisplayName returns the signed-in user's display name.
func (c *Client) GetUserDisplayName(ctx context.Context) (string, error) {
	var u user
	err := c.getJSON(ctx, request{
		op:     "get_me",
		method: http.MethodGet,
		path:   "/me",
		query:  url.Values{"$select": {"displayName,userPrincipalName"}},
	}, &u)
	if err != nil {
		return "", err
	}
	switch {
	case u.DisplayName != "":
		return u.DisplayName, nil
	case u.UserPrincipalName != "":
		return u.UserPrincipalName, nil
	}
	return "User", nil
}

// GetMyDriveID returns the id of the signed-in user's OneDrive.
func (c *Client) GetMyDriveID(ctx context.Context) (string, error) {
	var d drive
	if err := c.getJSON(ctx, request{op: "get_my_drive", method: http.MethodGet, path: "/me/drive"}, &d); err != nil {
		return "", err
	}
	if d.ID == "" {
		return "", fmt.Errorf("personal drive: %w", ErrNotFound)
	}
	return d.ID, nil
}

// ListFollowedSites returns the SharePoint sites the user follows.
func (c *Client) ListFollowedSites(ctx context.Context) ([]models.Site, error) {
	var result siteCollection
	if err := c.getJSON(ctx, request{op: "list_followed_sites", method: http.MethodGet, path: "/me/followedSites"}, &result); err != nil {
		return nil, err
	}
	sites := make([]models.Site, 0, len(result.Value))
	for _, s := range result.Value {
		sites = append(sites, toSite(s))
	}
	return sites, nil
}

// GetSiteDefaultDriveID returns the default document library of a site.
func (c *Client) GetSiteDefaultDriveID(ctx context.Context, siteID string) (string, error) {
	var d drive
	err := c.getJSON(ctx, request{
		op:     "get_site_drive",
		method: http.MethodGet,
		path:   "/sites/" + url.PathEscape(siteID) + "/drive",
	}, &d)
	if err != nil {
		return "", err
	}
	if d.ID == "" {
		return "", fmt.Errorf("default drive for site %s: %w", siteID, ErrNotFound)
	}
	return d.ID, nil
}

// ResolveSiteDrive resolves the default drive of a site addressed by host
// name and server-relative path, e.g. ("contoso.sharepoint.com", "/sites/team").
func (c *Client) ResolveSiteDrive(ctx context.Context, host, sitePath string) (string, error) {
	var s site
	err := c.getJSON(ctx, request{
		op:     "get_site",
		method: http.MethodGet,
		path:   "/sites/" + url.PathEscape(host) + ":/" + escapePath(sitePath),
	}, &s)
	if err != nil {
		return "", err
	}
	if s.ID == "" {
		return "", fmt.Errorf("site %s:%s: %w", host, sitePath, ErrNotFound)
	}

	driveID, err := c.GetSiteDefaultDriveID(ctx, s.ID)
	if err != nil {
		return "", fmt.Errorf("site %s:%s: %w", host, sitePath, err)
	}
	return driveID, nil
}

// ─── Listing & metadata ─────────────────────────────────────────────────────

// ListItems lists the immediate children of a folder. An empty folderID
// means the drive root. A missing value list yields an empty slice.
func (c *Client) ListItems(ctx context.Context, driveID, folderID string) ([]models.Item, error) {
	var result driveItemCollection
	err := c.getJSON(ctx, request{
		op:     "list_children",
		method: http.MethodGet,
		path:   itemPath(driveID, folderID) + "/children",
	}, &result)
	if err != nil {
		return nil, err
	}
	items := make([]models.Item, 0, len(result.Value))
	for _, d := range result.Value {
		items = append(items, toItem(d))
	}
	return items, nil
}

// ListItemsByPath lists the children of the folder at path, relative to the
// drive root (e.g. "Documents/Reports").
func (c *Client) ListItemsByPath(ctx context.Context, driveID, path string) ([]models.Item, error) {
	folder, err := c.itemByPath(ctx, driveID, path)
	if err != nil {
		return nil, err
	}
	return c.ListItems(ctx, driveID, folder.ID)
}

// GetItem returns metadata for a single item.
func (c *Client) GetItem(ctx context.Context, driveID, itemID string) (models.Item, error) {
	var d driveItem
	err := c.getJSON(ctx, request{op: "get_item", method: http.MethodGet, path: itemPath(driveID, itemID)}, &d)
	if err != nil {
		return models.Item{}, err
	}
	if d.ID == "" {
		return models.Item{}, fmt.Errorf("item %s: %w", itemID, ErrNotFound)
	}
	return toItem(d), nil
}

// GetFolderInfo returns a folder's metadata together with its children.
func (c *Client) GetFolderInfo(ctx context.Context, driveID, folderID string) (models.Folder, error) {
	meta, err := c.GetItem(ctx, driveID, folderID)
	if err != nil {
		return models.Folder{}, err
	}
	children, err := c.ListItems(ctx, driveID, folderID)
	if err != nil {
		return models.Folder{}, err
	}
	return models.Folder{
		ID:       meta.ID,
		Name:     meta.Name,
		WebURL:   meta.WebURL,
		Children: children,
	}, nil
}

func (c *Client) itemByPath(ctx context.Context, driveID, path string) (models.Item, error) {
	p := escapePath(path)
	if p == "" {
		return c.GetItem(ctx, driveID, "root")
	}
	var d driveItem
	err := c.getJSON(ctx, request{
		op:     "get_item_by_path",
		method: http.MethodGet,
		path:   drivePath(driveID) + "/root:/" + p,
	}, &d)
	if err != nil {
		return models.Item{}, err
	}
	if d.ID == "" {
		return models.Item{}, fmt.Errorf("folder at path %s: %w", path, ErrNotFound)
	}
	return toItem(d), nil
}

// ─── Content ────────────────────────────────────────────────────────────────

// Download returns the content of a file. Graph answers the content endpoint
// with a redirect to a pre-authenticated URL, which is fetched without the
// bearer token. An empty file yields empty, non-nil data; a missing item or
// redirect target yields ErrNotFound.
func (c *Client) Download(ctx context.Context, driveID, itemID string) ([]byte, error) {
	resp, err := c.send(ctx, request{op: "download", method: http.MethodGet, path: itemPath(driveID, itemID) + "/content"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body := resp.Body
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, fmt.Errorf("no content returned for item %s: %w", itemID, ErrNotFound)
		}
		redirected, err := c.fetchPreauthenticated(ctx, location)
		if err != nil {
			return nil, err
		}
		defer redirected.Body.Close()
		body = redirected.Body
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("graph download: read body: %w", err)
	}
	metrics.RecordContentDownload(int64(len(data)))
	return data, nil
}

func (c *Client) fetchPreauthenticated(ctx context.Context, location string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.plainClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError("download_redirect", resp)
	}
	return resp, nil
}

// DownloadTo downloads a file to dest. When dest is an existing directory the
// remote file name is kept. Parent directories are created. Returns the path
// written.
func (c *Client) DownloadTo(ctx context.Context, driveID, itemID, dest string) (string, error) {
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		meta, err := c.GetItem(ctx, driveID, itemID)
		if err != nil {
			return "", err
		}
		dest = filepath.Join(dest, filepath.Base(meta.Name))
	}

	data, err := c.Download(ctx, driveID, itemID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create destination dir: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	logging.Info("downloaded item",
		zap.String("item_id", itemID),
		zap.String("dest", dest),
		zap.Int("bytes", len(data)))
	return dest, nil
}

// ─── Writes ─────────────────────────────────────────────────────────────────

// Upload creates or replaces filename inside the parent folder. Suitable for
// small files (simple upload, up to 250 MB).
func (c *Client) Upload(ctx context.Context, driveID, parentID, filename string, data []byte) (models.Item, error) {
	if parentID == "" {
		parentID = "root"
	}
	path := itemPath(driveID, parentID) + ":/" + url.PathEscape(filename) + ":/content"
	return c.putContent(ctx, path, filename, data)
}

// UploadByPath creates or replaces the file at remotePath, relative to the
// drive root.
func (c *Client) UploadByPath(ctx context.Context, driveID, remotePath string, data []byte) (models.Item, error) {
	p := escapePath(remotePath)
	if p == "" {
		return models.Item{}, fmt.Errorf("upload: empty remote path")
	}
	return c.putContent(ctx, drivePath(driveID)+"/root:/"+p+":/content", remotePath, data)
}

func (c *Client) putContent(ctx context.Context, path, name string, data []byte) (models.Item, error) {
	var d driveItem
	err := c.getJSON(ctx, request{
		op:          "upload",
		method:      http.MethodPut,
		path:        path,
		body:        data,
		contentType: "application/octet-stream",
	}, &d)
	if err != nil {
		return models.Item{}, err
	}
	if d.ID == "" {
		return models.Item{}, fmt.Errorf("upload returned no metadata for %s", name)
	}
	logging.Info("uploaded item", zap.String("name", name), zap.String("item_id", d.ID), zap.Int("bytes", len(data)))
	return toItem(d), nil
}

// CreateFolder creates a folder inside parentID. Name clashes are resolved by
// Graph renaming the new folder.
func (c *Client) CreateFolder(ctx context.Context, driveID, parentID, name string) (models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Item{}, fmt.Errorf("create folder: empty name")
	}
	body, err := json.Marshal(newFolder{Name: name, ConflictBehavior: "rename"})
	if err != nil {
		return models.Item{}, err
	}

	var d driveItem
	err = c.getJSON(ctx, request{
		op:          "create_folder",
		method:      http.MethodPost,
		path:        itemPath(driveID, parentID) + "/children",
		body:        body,
		contentType: "application/json",
	}, &d)
	if err != nil {
		return models.Item{}, err
	}
	if d.ID == "" {
		return models.Item{}, fmt.Errorf("folder creation returned no metadata for %s", name)
	}
	return toItem(d), nil
}

// Delete moves an item to the recycle bin.
func (c *Client) Delete(ctx context.Context, driveID, itemID string) error {
	err := c.getJSON(ctx, request{op: "delete", method: http.MethodDelete, path: itemPath(driveID, itemID)}, nil)
	if err != nil {
		return err
	}
	logging.Info("deleted item", zap.String("item_id", itemID), zap.String("drive_id", driveID))
	return nil
}
