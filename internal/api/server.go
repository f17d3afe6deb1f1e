// Package api provides the HTTP server and handlers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/auth"
	"github.com/LeonardHd/maf-onedrive-integration/internal/graph"
	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
	"github.com/LeonardHd/maf-onedrive-integration/internal/models"
	"github.com/LeonardHd/maf-onedrive-integration/internal/protocol"
	"github.com/LeonardHd/maf-onedrive-integration/internal/summary"
	"github.com/LeonardHd/maf-onedrive-integration/webapp"
)

// Identity starts and completes the OAuth authorization code flow.
type Identity interface {
	AuthCodeURL() string
	Exchange(ctx context.Context, code string) (*auth.Credential, error)
}

// DriveClient is the part of the Graph client the handlers use.
type DriveClient interface {
	GetUserDisplayName(ctx context.Context) (string, error)
	ListFollowedSites(ctx context.Context) ([]models.Site, error)
	GetMyDriveID(ctx context.Context) (string, error)
	GetSiteDefaultDriveID(ctx context.Context, siteID string) (string, error)
	ListItems(ctx context.Context, driveID, folderID string) ([]models.Item, error)
	ListItemsByPath(ctx context.Context, driveID, path string) ([]models.Item, error)
	GetItem(ctx context.Context, driveID, itemID string) (models.Item, error)
	Download(ctx context.Context, driveID, itemID string) ([]byte, error)
}

// ClientFactory builds a drive client acting as cred.
type ClientFactory func(cred *auth.Credential) DriveClient

// Summarizer runs the document summarization pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, data []byte, filename string) summary.Result
}

// Server is the HTTP server.
type Server struct {
	identity   Identity
	clients    ClientFactory
	sessions   *auth.Store
	cookies    *auth.CookieCodec
	summarizer Summarizer
}

// NewServer creates a new server.
func NewServer(
	identity Identity,
	clients ClientFactory,
	sessions *auth.Store,
	cookies *auth.CookieCodec,
	summarizer Summarizer,
) *Server {
	return &Server{
		identity:   identity,
		clients:    clients,
		sessions:   sessions,
		cookies:    cookies,
		summarizer: summarizer,
	}
}

// Handler returns the HTTP handler with logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("GET /logout", s.handleLogout)

	// Session-protected endpoints
	mux.HandleFunc("GET /api/me", s.requireSession(s.handleMe))
	mux.HandleFunc("GET /api/sites", s.requireSession(s.handleSites))
	mux.HandleFunc("GET /api/files", s.requireSession(s.handleFiles))
	mux.HandleFunc("POST /api/summarize", s.requireSession(s.handleSummarize))

	// Metrics sit inside logging so they see the pattern the mux sets.
	return logging.Middleware(metrics.Middleware(mux))
}

// ─── Health & index ─────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, webapp.Assets, "index.html")
}

// ─── Session plumbing ───────────────────────────────────────────────────────

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *auth.Session)

// requireSession answers 401 before any remote call when the request has no
// live session. An unknown session id is treated like a missing one.
func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.session(r)
		if !ok {
			s.sendError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) session(r *http.Request) (*auth.Session, bool) {
	sid, _, ok := s.cookies.Read(r)
	if !ok {
		return nil, false
	}
	return s.sessions.Get(sid)
}

// ─── Responses ──────────────────────────────────────────────────────────────

func (s *Server) sendJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	s.sendJSON(w, code, protocol.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// sendRemoteError answers 502 with message for failures talking to Graph or
// the identity provider. Anything else is a local fault and answers 500 with
// the request id, which matches the logged error.
func (s *Server) sendRemoteError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logger := logging.WithContext(r.Context())
	if graph.IsRemote(err) {
		logger.Warn(message, zap.Error(err))
		s.sendError(w, http.StatusBadGateway, message)
		return
	}
	logger.Error("unexpected handler error", zap.String("context", message), zap.Error(err))
	resp := protocol.ErrorResponse{Error: "internal error", Code: http.StatusInternalServerError}
	if id := logging.GetRequestID(r.Context()); id != "" {
		resp.Description = "request id " + id
	}
	s.sendJSON(w, http.StatusInternalServerError, resp)
}
