package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Built-in Keycloak roles every user carries; they never map to permissions.
var keycloakBuiltins = map[string]bool{
	"uma_authorization": true,
	"offline_access":    true,
}

// Keycloak is the Keycloak provider. Roles are embedded in the access token
// itself (realm roles, client roles, groups), so no extra API call is needed.
type Keycloak struct {
	oauth      *oauth2.Config
	baseURL    string
	clientID   string
	httpClient *http.Client
	log        *logrus.Entry
}

func newKeycloak(cfg Config) (*Keycloak, error) {
	if cfg.ServerURL == "" || cfg.Realm == "" {
		return nil, errors.New("keycloak: server url and realm are required")
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	base := strings.TrimRight(cfg.ServerURL, "/") + "/realms/" + cfg.Realm + "/protocol/openid-connect"
	return &Keycloak{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/auth",
				TokenURL: base + "/token",
			},
		},
		baseURL:    base,
		clientID:   cfg.ClientID,
		httpClient: http.DefaultClient,
		log:        logrus.WithField("provider", "keycloak"),
	}, nil
}

func (k *Keycloak) Name() string { return "keycloak" }

func (k *Keycloak) AuthCodeURL(state string) string {
	return k.oauth.AuthCodeURL(state)
}

func (k *Keycloak) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, k.httpClient)
	return k.oauth.Exchange(ctx, code)
}

func (k *Keycloak) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak: fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keycloak: userinfo returned %s", resp.Status)
	}
	var info struct {
		Name              string `json:"name"`
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("keycloak: decode userinfo: %w", err)
	}
	name := info.Name
	if name == "" {
		name = info.PreferredUsername
	}
	id := &Identity{Name: name, Email: info.Email}

	roles, err := rolesFromAccessToken(token.AccessToken, k.clientID)
	if err != nil {
		k.log.WithError(err).Warn("could not extract roles from access token")
		return id, nil
	}
	id.Roles = roles
	return id, nil
}

func (k *Keycloak) LogoutURL(redirectURI string) string {
	logout := k.baseURL + "/logout"
	if redirectURI != "" {
		logout += "?redirect_uri=" + url.QueryEscape(redirectURI)
	}
	return logout
}

// rolesFromAccessToken pulls role names out of a Keycloak access token's
// claims without signature verification: the token came straight from the
// provider's own token endpoint over TLS and is only inspected, never trusted
// as a credential. Keycloak scatters roles across realm_access,
// resource_access (per client), and the optional groups claim.
func rolesFromAccessToken(raw, clientID string) ([]string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}

	var roles []string
	if realm, ok := claims["realm_access"].(map[string]any); ok {
		roles = append(roles, claimStrings(realm["roles"])...)
	}
	if resources, ok := claims["resource_access"].(map[string]any); ok {
		if client, ok := resources[clientID].(map[string]any); ok {
			roles = append(roles, claimStrings(client["roles"])...)
		}
	}
	roles = append(roles, claimStrings(claims["groups"])...)

	filtered := roles[:0]
	for _, role := range roles {
		if strings.HasPrefix(role, "default-") || keycloakBuiltins[role] {
			continue
		}
		filtered = append(filtered, role)
	}
	return filtered, nil
}

func claimStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
