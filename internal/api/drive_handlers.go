package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/auth"
	"github.com/LeonardHd/maf-onedrive-integration/internal/graph"
	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
	"github.com/LeonardHd/maf-onedrive-integration/internal/protocol"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	s.sendJSON(w, http.StatusOK, protocol.MeResponse{Name: sess.UserName})
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	sites, err := s.clients(sess.Credential).ListFollowedSites(r.Context())
	if err != nil {
		s.sendRemoteError(w, r, err, "Failed to list sites")
		return
	}

	out := make([]protocol.SiteInfo, 0, len(sites))
	for _, site := range sites {
		out = append(out, protocol.NewSiteInfo(site))
	}
	s.sendJSON(w, http.StatusOK, out)
}

// resolveDrive picks the drive from the query: drive_id, then the default
// library of site_id, then the user's own drive.
func resolveDrive(ctx context.Context, client DriveClient, q url.Values) (string, error) {
	if id := q.Get("drive_id"); id != "" {
		return id, nil
	}
	if site := q.Get("site_id"); site != "" {
		return client.GetSiteDefaultDriveID(ctx, site)
	}
	return client.GetMyDriveID(ctx)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()
	q := r.URL.Query()
	client := s.clients(sess.Credential)

	driveID, err := resolveDrive(ctx, client, q)
	if err != nil {
		s.sendRemoteError(w, r, err, "Failed to list files")
		return
	}

	var items []models.Item
	if path := q.Get("path"); path != "" {
		items, err = client.ListItemsByPath(ctx, driveID, path)
	} else {
		items, err = client.ListItems(ctx, driveID, "root")
	}
	if err != nil {
		s.sendRemoteError(w, r, err, "Failed to list files")
		return
	}

	out := make([]protocol.FileInfo, 0, len(items))
	for _, item := range items {
		out = append(out, protocol.NewFileInfo(item))
	}
	s.sendJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	ctx := r.Context()
	q := r.URL.Query()

	itemID := q.Get("item_id")
	if itemID == "" {
		s.sendError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	client := s.clients(sess.Credential)
	driveID, err := resolveDrive(ctx, client, q)
	if err != nil {
		s.sendRemoteError(w, r, err, "Failed to download the file")
		return
	}
	item, err := client.GetItem(ctx, driveID, itemID)
	if err != nil {
		s.sendRemoteError(w, r, err, "Failed to download the file")
		return
	}

	data, err := client.Download(ctx, driveID, itemID)
	if errors.Is(err, graph.ErrNotFound) || (err == nil && len(data) == 0) {
		logging.WithContext(ctx).Warn("item has no content", zap.String("item_id", itemID), zap.Error(err))
		s.sendError(w, http.StatusBadGateway, "File has no downloadable content")
		return
	}
	if err != nil {
		s.sendRemoteError(w, r, err, "Failed to download the file")
		return
	}

	result := s.summarizer.Summarize(ctx, data, item.Name)
	if !result.Success {
		s.sendError(w, http.StatusUnprocessableEntity, result.Error)
		return
	}
	s.sendJSON(w, http.StatusOK, protocol.SummaryResponse{Summary: result.Summary})
}
