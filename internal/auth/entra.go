// Package auth handles Microsoft Entra ID sign-in, the in-memory credential
// store and the signed session cookie that points into it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"github.com/LeonardHd/maf-onedrive-integration/internal/logging"
)

// DefaultAuthorityHost is the public-cloud Entra ID host.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

// Scopes requested for signed-in users.
var Scopes = []string{"User.Read", "Files.Read.All", "Sites.Read.All"}

// AppScope is the client-credentials scope for Graph.
const AppScope = "https://graph.microsoft.com/.default"

// ErrAppCredentialTenant is returned when app-only tokens are requested for a
// multi-tenant authority.
var ErrAppCredentialTenant = errors.New("app credentials need a specific tenant id")

// EntraConfig holds the application registration.
type EntraConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string
	TenantID      string // "common" by default
	AuthorityHost string
	Discovery     bool // discover endpoints from the tenant's OpenID configuration
}

// Credential yields Graph access tokens for one user or application.
// Tokens are cached and refreshed when possible.
type Credential struct {
	oauth2.TokenSource
}

// NewCredential wraps ts.
func NewCredential(ts oauth2.TokenSource) *Credential {
	return &Credential{TokenSource: oauth2.ReuseTokenSource(nil, ts)}
}

// Entra is the identity provider for the web sign-in flow.
type Entra struct {
	cfg      EntraConfig
	oauth    *oauth2.Config
	endpoint oauth2.Endpoint
}

// NewEntra builds the provider. With discovery enabled, a failed discovery
// falls back to the static endpoints.
func NewEntra(ctx context.Context, cfg EntraConfig) *Entra {
	if cfg.TenantID == "" {
		cfg.TenantID = "common"
	}
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = DefaultAuthorityHost
	}
	cfg.AuthorityHost = strings.TrimRight(cfg.AuthorityHost, "/")

	endpoint := staticEndpoint(cfg)
	if cfg.Discovery {
		discovered, err := discoverEndpoint(ctx, cfg)
		if err != nil {
			logging.Warn("OIDC discovery failed, using static endpoints",
				zap.String("authority", authority(cfg)),
				zap.Error(err))
		} else {
			endpoint = discovered
		}
	}

	logging.Info("Entra ID provider initialized",
		zap.String("authority", authority(cfg)),
		zap.String("client_id", cfg.ClientID),
		zap.String("auth_url", endpoint.AuthURL))

	return &Entra{
		cfg:      cfg,
		endpoint: endpoint,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       Scopes,
		},
	}
}

func authority(cfg EntraConfig) string {
	return cfg.AuthorityHost + "/" + cfg.TenantID
}

func staticEndpoint(cfg EntraConfig) oauth2.Endpoint {
	if cfg.AuthorityHost == DefaultAuthorityHost {
		return microsoft.AzureADEndpoint(cfg.TenantID)
	}
	return oauth2.Endpoint{
		AuthURL:   authority(cfg) + "/oauth2/v2.0/authorize",
		TokenURL:  authority(cfg) + "/oauth2/v2.0/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

func discoverEndpoint(ctx context.Context, cfg EntraConfig) (oauth2.Endpoint, error) {
	issuer := authority(cfg) + "/v2.0"
	// Multi-tenant authorities publish a templated issuer ({tenantid}).
	ctx = oidc.InsecureIssuerURLContext(ctx, issuer)
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return oauth2.Endpoint{}, fmt.Errorf("oidc discovery: %w", err)
	}
	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return endpoint, nil
}

// AuthCodeURL returns the URL that starts the authorization code flow.
func (e *Entra) AuthCodeURL() string {
	return e.oauth.AuthCodeURL("", oauth2.SetAuthURLParam("response_mode", "query"))
}

// Exchange redeems an authorization code. A rejected code yields an
// *oauth2.RetrieveError.
func (e *Entra) Exchange(ctx context.Context, code string) (*Credential, error) {
	tok, err := e.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	// The credential outlives the callback request.
	return NewCredential(e.oauth.TokenSource(context.WithoutCancel(ctx), tok)), nil
}

// AppCredential returns an application credential using the client
// credentials grant. The tenant must be a concrete directory.
func (e *Entra) AppCredential(ctx context.Context) (*Credential, error) {
	switch strings.ToLower(e.cfg.TenantID) {
	case "common", "organizations", "consumers":
		return nil, ErrAppCredentialTenant
	}
	cc := clientcredentials.Config{
		ClientID:     e.cfg.ClientID,
		ClientSecret: e.cfg.ClientSecret,
		TokenURL:     e.endpoint.TokenURL,
		Scopes:       []string{AppScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return NewCredential(cc.TokenSource(ctx)), nil
}
