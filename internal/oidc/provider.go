// Package oidc abstracts the external identity providers behind one
// authorization-code-flow interface. The variant set is closed: adding a
// provider means adding a case to New.
package oidc

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Identity is what a provider knows about the logged-in user. Roles feed the
// permission mapping; an empty list falls through to the default role.
type Identity struct {
	Name  string
	Email string
	Roles []string
}

// Provider drives the OAuth2 authorization-code flow against one identity
// provider and resolves the resulting token into an Identity.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Identity(ctx context.Context, token *oauth2.Token) (*Identity, error)
	LogoutURL(redirectURI string) string
}

// Config carries the union of per-provider settings; New picks the fields the
// selected provider needs.
type Config struct {
	Provider     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Entra ID
	TenantID string

	// Keycloak
	ServerURL string
	Realm     string
}

// New builds the configured provider.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "entra", "azure", "azuread":
		return newEntra(cfg)
	case "keycloak":
		return newKeycloak(cfg)
	default:
		return nil, fmt.Errorf("unsupported identity provider %q (supported: entra, keycloak)", cfg.Provider)
	}
}
