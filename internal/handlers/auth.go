package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/goalquest/internal/services/oidc"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	stateCookieName    = "goalquest_oauth_state"
	verifierCookieName = "goalquest_oauth_verifier"
	loginCookieTTL     = 10 * time.Minute
)

// AuthHandler drives the authorization code flow for browser clients.
// The state and PKCE verifier live in short-lived HttpOnly cookies.
type AuthHandler struct {
	provider     *oidc.Provider
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler. Cookies are marked Secure when baseURL is https.
func NewAuthHandler(provider *oidc.Provider, baseURL string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		provider:     provider,
		secureCookie: strings.HasPrefix(baseURL, "https://"),
		logger:       logger,
	}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods("GET")
	r.HandleFunc("/token", h.ExchangeToken).Methods("POST")
}

// LoginResponse tells the client where to send the user
type LoginResponse struct {
	*oidc.LoginConfig
	AuthorizationURL string `json:"authorization_url,omitempty"`
	State            string `json:"state,omitempty"`
}

// TokenResponse carries the tokens from a completed code exchange
type TokenResponse struct {
	IDToken     string    `json:"id_token"`
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type tokenRequest struct {
	Code  string `json:"code" validate:"required,max=2048"`
	State string `json:"state" validate:"required,max=128"`
}

// Login returns the provider endpoints and, when a client id is configured,
// a ready authorization URL bound to fresh state and PKCE cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	login := h.provider.GetLoginConfig(r.Context())
	resp := LoginResponse{LoginConfig: login}

	if login.ClientID != "" {
		state := uuid.NewString()
		verifier := oidc.NewPKCEVerifier()
		client := oidc.NewClient(h.provider.Settings(), login)

		h.setCookie(w, stateCookieName, state, loginCookieTTL)
		h.setCookie(w, verifierCookieName, verifier, loginCookieTTL)
		resp.AuthorizationURL = client.AuthCodeURL(state, verifier)
		resp.State = state
	}

	respondJSON(w, http.StatusOK, resp)
}

// ExchangeToken trades an authorization code for tokens
func (h *AuthHandler) ExchangeToken(w http.ResponseWriter, r *http.Request) {
	login := h.provider.GetLoginConfig(r.Context())
	if login.ClientID == "" {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Login is not configured")
		return
	}

	var req tokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(req.State)) != 1 {
		h.logger.Warn("security_event",
			zap.String("event_type", "oauth_state_mismatch"),
			zap.String("path", r.URL.Path),
		)
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Login session expired or invalid. Please sign in again.")
		return
	}
	verifierCookie, err := r.Cookie(verifierCookieName)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Login session expired or invalid. Please sign in again.")
		return
	}

	// single use
	h.setCookie(w, stateCookieName, "", -1)
	h.setCookie(w, verifierCookieName, "", -1)

	client := oidc.NewClient(h.provider.Settings(), login)
	token, err := client.ExchangeCode(r.Context(), req.Code, verifierCookie.Value)
	if err != nil {
		h.logger.Warn("oauth_code_exchange_failed", zap.Error(err))
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Sign-in failed. Please try again.")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{
		IDToken:     oidc.IDToken(token),
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
		ExpiresAt:   token.Expiry,
	})
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/api/v1/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
