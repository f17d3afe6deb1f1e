package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// fakeIdentity serves the token endpoint and, optionally, OpenID discovery
// for tenant "contoso".
func fakeIdentity(t *testing.T, discovery bool) *httptest.Server {
	t.Helper()
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/contoso/v2.0/.well-known/openid-configuration":
			if !discovery {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				// Entra publishes the templated issuer for multi-tenant authorities.
				"issuer":                 ts.URL + "/{tenantid}/v2.0",
				"authorization_endpoint": ts.URL + "/discovered/authorize",
				"token_endpoint":         ts.URL + "/contoso/oauth2/v2.0/token",
				"jwks_uri":               ts.URL + "/discovered/keys",
			})
		case "/contoso/oauth2/v2.0/token":
			r.ParseForm()
			switch {
			case r.Form.Get("grant_type") == "client_credentials" && r.Form.Get("scope") == AppScope:
				json.NewEncoder(w).Encode(map[string]any{"access_token": "app-token", "token_type": "Bearer", "expires_in": 3600})
			case r.Form.Get("code") == "good-code" && r.Form.Get("client_secret") == "s3cret":
				json.NewEncoder(w).Encode(map[string]any{"access_token": "user-token", "token_type": "Bearer", "expires_in": 3600})
			default:
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "invalid_grant",
					"error_description": "AADSTS70000: The provided authorization code is invalid.",
				})
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testEntra(t *testing.T, ts *httptest.Server, discovery bool) *Entra {
	t.Helper()
	return NewEntra(context.Background(), EntraConfig{
		ClientID:      "app-id",
		ClientSecret:  "s3cret",
		RedirectURI:   "http://localhost:8000/auth/callback",
		TenantID:      "contoso",
		AuthorityHost: ts.URL,
		Discovery:     discovery,
	})
}

func TestAuthCodeURL(t *testing.T) {
	ts := fakeIdentity(t, false)
	e := testEntra(t, ts, false)

	u, err := url.Parse(e.AuthCodeURL())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := u.Scheme + "://" + u.Host + u.Path; got != ts.URL+"/contoso/oauth2/v2.0/authorize" {
		t.Errorf("unexpected authorize endpoint %q", got)
	}
	q := u.Query()
	want := map[string]string{
		"client_id":     "app-id",
		"response_type": "code",
		"redirect_uri":  "http://localhost:8000/auth/callback",
		"scope":         "User.Read Files.Read.All Sites.Read.All",
		"response_mode": "query",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
	if e.AuthCodeURL() != e.AuthCodeURL() {
		t.Error("authorization URL should be stable")
	}
}

func TestStaticEndpoint_PublicCloud(t *testing.T) {
	ep := staticEndpoint(EntraConfig{TenantID: "common", AuthorityHost: DefaultAuthorityHost})
	if ep.AuthURL != "https://login.microsoftonline.com/common/oauth2/v2.0/authorize" {
		t.Errorf("unexpected auth url %q", ep.AuthURL)
	}
	if ep.TokenURL != "https://login.microsoftonline.com/common/oauth2/v2.0/token" {
		t.Errorf("unexpected token url %q", ep.TokenURL)
	}
}

func TestDiscovery(t *testing.T) {
	ts := fakeIdentity(t, true)
	e := testEntra(t, ts, true)

	if !strings.HasPrefix(e.AuthCodeURL(), ts.URL+"/discovered/authorize?") {
		t.Errorf("expected discovered endpoint, got %q", e.AuthCodeURL())
	}
}

func TestDiscovery_FallsBackToStatic(t *testing.T) {
	ts := fakeIdentity(t, false)
	e := testEntra(t, ts, true)

	if !strings.HasPrefix(e.AuthCodeURL(), ts.URL+"/contoso/oauth2/v2.0/authorize?") {
		t.Errorf("expected static endpoint, got %q", e.AuthCodeURL())
	}
}

func TestExchange(t *testing.T) {
	ts := fakeIdentity(t, false)
	e := testEntra(t, ts, false)

	ctx, cancel := context.WithCancel(context.Background())
	cred, err := e.Exchange(ctx, "good-code")
	cancel()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := cred.Token()
	if err != nil {
		t.Fatalf("token after request ended: %v", err)
	}
	if tok.AccessToken != "user-token" {
		t.Errorf("got %q", tok.AccessToken)
	}
}

func TestExchange_InvalidCode(t *testing.T) {
	ts := fakeIdentity(t, false)
	_, err := testEntra(t, ts, false).Exchange(context.Background(), "bad-code")

	var retrieve *oauth2.RetrieveError
	if !errors.As(err, &retrieve) {
		t.Fatalf("expected RetrieveError, got %T: %v", err, err)
	}
	if retrieve.ErrorCode != "invalid_grant" {
		t.Errorf("unexpected error code %q", retrieve.ErrorCode)
	}
}

func TestAppCredential(t *testing.T) {
	ts := fakeIdentity(t, false)
	cred, err := testEntra(t, ts, false).AppCredential(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tok, err := cred.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "app-token" {
		t.Errorf("got %q", tok.AccessToken)
	}
}

func TestAppCredential_MultiTenant(t *testing.T) {
	e := NewEntra(context.Background(), EntraConfig{ClientID: "app-id"})
	if _, err := e.AppCredential(context.Background()); !errors.Is(err, ErrAppCredentialTenant) {
		t.Fatalf("expected ErrAppCredentialTenant, got %v", err)
	}
}

func staticCredential(token string) *Credential {
	return NewCredential(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore()
	cred := staticCredential("t")

	sid, err := s.Create(cred, "Megan")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sid) != 32 {
		t.Errorf("expected 32 hex chars, got %q", sid)
	}

	sess, ok := s.Get(sid)
	if !ok || sess.Credential != cred || sess.UserName != "Megan" {
		t.Fatalf("unexpected session: %+v, %v", sess, ok)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 session, got %d", s.Len())
	}

	s.Delete(sid)
	s.Delete(sid)
	if _, ok := s.Get(sid); ok {
		t.Error("session should be gone")
	}
	if _, ok := s.Get(""); ok {
		t.Error("empty sid must not resolve")
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	s := NewStore()
	seen := map[string]bool{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sid, err := s.Create(staticCredential("t"), "u")
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[sid] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 50 || s.Len() != 50 {
		t.Errorf("expected 50 unique sessions, got %d ids and %d stored", len(seen), s.Len())
	}
}

func TestStore_Prune(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.now = func() time.Time { return now.Add(-48 * time.Hour) }
	old, _ := s.Create(staticCredential("old"), "old")
	s.now = func() time.Time { return now }
	fresh, _ := s.Create(staticCredential("new"), "new")

	if removed := s.Prune(24 * time.Hour); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := s.Get(old); ok {
		t.Error("old session should be pruned")
	}
	if _, ok := s.Get(fresh); !ok {
		t.Error("fresh session should remain")
	}
}

func roundTrip(t *testing.T, write func(w http.ResponseWriter)) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	write(rec)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookieCodec_RoundTrip(t *testing.T) {
	codec := NewCookieCodec("secret", time.Hour, true)

	rec := httptest.NewRecorder()
	if err := codec.Write(rec, "sid-1", "Megan"); err != nil {
		t.Fatalf("write: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 3600 {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	sid, name, ok := codec.Read(req)
	if !ok || sid != "sid-1" || name != "Megan" {
		t.Errorf("got %q %q %v", sid, name, ok)
	}
}

func TestCookieCodec_RejectsForeignSignature(t *testing.T) {
	req := roundTrip(t, func(w http.ResponseWriter) {
		NewCookieCodec("other-secret", time.Hour, false).Write(w, "sid-1", "x")
	})
	if _, _, ok := NewCookieCodec("secret", time.Hour, false).Read(req); ok {
		t.Error("cookie signed with another secret must read as anonymous")
	}
}

func TestCookieCodec_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, _, ok := NewCookieCodec("secret", 0, false).Read(req); ok {
		t.Error("no cookie must read as anonymous")
	}
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
	if _, _, ok := NewCookieCodec("secret", 0, false).Read(req); ok {
		t.Error("garbage cookie must read as anonymous")
	}
}

func TestCookieCodec_Clear(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCookieCodec("secret", 0, false).Clear(rec)
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].MaxAge >= 0 || c[0].Value != "" {
		t.Errorf("expected an expired cookie, got %+v", c)
	}
}
