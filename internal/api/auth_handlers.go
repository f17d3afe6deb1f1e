package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
	"github.com/LeonardHd/maf-onedrive-integration/internal/metrics"
	"github.com/LeonardHd/maf-onedrive-integration/internal/protocol"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.identity.AuthCodeURL(), http.StatusTemporaryRedirect)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	ctx := r.Context()
	logger := logging.WithContext(ctx)

	cred, err := s.identity.Exchange(ctx, code)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		logger.Warn("authorization code redemption failed", zap.Error(err))
		s.sendAuthFailed(w)
		return
	}

	// Probing the profile confirms the credential works.
	name, err := s.clients(cred).GetUserDisplayName(ctx)
	if err != nil {
		metrics.RecordAuthAttempt(false)
		logger.Warn("profile lookup after sign-in failed", zap.Error(err))
		s.sendAuthFailed(w)
		return
	}

	if oldSID, _, ok := s.cookies.Read(r); ok {
		s.sessions.Delete(oldSID)
	}
	sid, err := s.sessions.Create(cred, name)
	if err != nil {
		logger.Error("create session failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := s.cookies.Write(w, sid, name); err != nil {
		s.sessions.Delete(sid)
		logger.Error("write session cookie failed", zap.Error(err))
		s.sendError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.RecordAuthAttempt(true)
	logger.Info("user signed in", zap.String("user", name))
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

func (s *Server) sendAuthFailed(w http.ResponseWriter) {
	s.sendJSON(w, http.StatusBadRequest, protocol.ErrorResponse{
		Error:       "authentication_failed",
		Code:        http.StatusBadRequest,
		Description: "Failed to redeem authorization code.",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sid, _, ok := s.cookies.Read(r); ok {
		s.sessions.Delete(sid)
	}
	s.cookies.Clear(w)
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}
