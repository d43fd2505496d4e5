// Package oidc verifies identity provider tokens and drives the login code flow.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Settings is the static identity provider configuration
type Settings struct {
	Issuer       string
	JWKSURL      string
	Audience     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// LoginConfig contains OIDC login configuration for frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// Provider resolves provider endpoints through discovery
type Provider struct {
	settings   Settings
	httpClient *http.Client

	mu    sync.Mutex
	login *LoginConfig
}

// NewProvider creates a new OIDC provider manager
func NewProvider(settings Settings, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Provider{settings: settings, httpClient: httpClient}
}

// Settings returns the configured settings
func (p *Provider) Settings() Settings {
	return p.settings
}

// GetLoginConfig returns the configuration needed for frontend OIDC login.
// A successful discovery result is cached; failures fall back to issuer-relative endpoints.
func (p *Provider) GetLoginConfig(ctx context.Context) *LoginConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.login != nil {
		return p.login
	}

	issuer := strings.TrimSuffix(p.settings.Issuer, "/")
	cfg := &LoginConfig{
		AuthorizationEndpoint: issuer + "/oauth2/authorize",
		TokenEndpoint:         issuer + "/oauth2/token",
		ClientID:              p.settings.ClientID,
		RedirectURI:           p.settings.RedirectURI,
		Scope:                 "openid email profile",
	}

	discovery, err := p.discover(ctx, issuer)
	if err != nil {
		return cfg
	}
	if discovery.AuthorizationEndpoint != "" {
		cfg.AuthorizationEndpoint = discovery.AuthorizationEndpoint
	}
	if discovery.TokenEndpoint != "" {
		cfg.TokenEndpoint = discovery.TokenEndpoint
	}
	p.login = cfg
	return cfg
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

func (p *Provider) discover(ctx context.Context, issuer string) (*discoveryDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}
	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}
