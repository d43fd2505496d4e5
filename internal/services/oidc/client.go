package oidc

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Client wraps OAuth2 client functionality
type Client struct {
	config *oauth2.Config
}

// NewClient creates a new OAuth2 client from the settings and resolved endpoints
func NewClient(settings Settings, login *LoginConfig) *Client {
	config := &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  login.AuthorizationEndpoint,
			TokenURL: login.TokenEndpoint,
		},
	}

	return &Client{config: config}
}

// ExchangeCode exchanges an authorization code for tokens using the PKCE verifier
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := c.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// AuthCodeURL returns the authorization URL with an S256 PKCE challenge
func (c *Client) AuthCodeURL(state, verifier string) string {
	return c.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// NewPKCEVerifier returns a fresh PKCE code verifier
func NewPKCEVerifier() string {
	return oauth2.GenerateVerifier()
}

// IDToken extracts the id_token returned alongside the access token
func IDToken(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	if id, ok := token.Extra("id_token").(string); ok {
		return id
	}
	return ""
}
