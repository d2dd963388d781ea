package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	entraAuthority = "https://login.microsoftonline.com"
	entraGraphURL  = "https://graph.microsoft.com/v1.0"
)

// Entra is the Microsoft Entra ID (Azure AD) provider. Group membership is
// not in the token; it comes from a Graph API call at login time.
type Entra struct {
	oauth      *oauth2.Config
	authority  string
	graphURL   string
	httpClient *http.Client
	log        *logrus.Entry
}

func newEntra(cfg Config) (*Entra, error) {
	if cfg.TenantID == "" {
		return nil, errors.New("entra: tenant id is required")
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email", "User.Read"}
	}

	authority := entraAuthority + "/" + cfg.TenantID
	return &Entra{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authority + "/oauth2/v2.0/authorize",
				TokenURL: authority + "/oauth2/v2.0/token",
			},
		},
		authority:  authority,
		graphURL:   entraGraphURL,
		httpClient: http.DefaultClient,
		log:        logrus.WithField("provider", "entra"),
	}, nil
}

func (e *Entra) Name() string { return "entra" }

func (e *Entra) AuthCodeURL(state string) string {
	return e.oauth.AuthCodeURL(state)
}

func (e *Entra) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	return e.oauth.Exchange(ctx, code)
}

func (e *Entra) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	var me struct {
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := e.graphGet(ctx, token, "/me", &me); err != nil {
		return nil, fmt.Errorf("entra: fetch profile: %w", err)
	}
	email := me.Mail
	if email == "" {
		email = me.UserPrincipalName
	}
	id := &Identity{Name: me.DisplayName, Email: email}

	var membership struct {
		Value []struct {
			DisplayName string `json:"displayName"`
		} `json:"value"`
	}
	if err := e.graphGet(ctx, token, "/me/memberOf", &membership); err != nil {
		// No roles means the default role applies downstream.
		e.log.WithError(err).Warn("could not fetch directory group membership")
		return id, nil
	}
	for _, group := range membership.Value {
		if group.DisplayName != "" {
			id.Roles = append(id.Roles, group.DisplayName)
		}
	}
	return id, nil
}

func (e *Entra) LogoutURL(redirectURI string) string {
	logout := e.authority + "/oauth2/v2.0/logout"
	if redirectURI != "" {
		logout += "?post_logout_redirect_uri=" + url.QueryEscape(redirectURI)
	}
	return logout
}

func (e *Entra) graphGet(ctx context.Context, token *oauth2.Token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.graphURL+path, nil)
	if err != nil {
		return err
	}
	token.SetAuthHeader(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graph API returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
