package models

// JWTClaims represents the claims extracted from a JWT token
type JWTClaims struct {
	Sub       string `json:"sub"`        // Subject (user ID from provider)
	Email     string `json:"email"`      // User email
	Name      string `json:"name"`       // Full name
	GivenName string `json:"given_name"` // First name
	Exp       int64  `json:"exp"`        // Expiration time
	Iat       int64  `json:"iat"`        // Issued at
	Iss       string `json:"iss"`        // Issuer
	Aud       string `json:"aud"`        // Audience
}

// FirstName prefers given_name and falls back to the first word of name
func (c *JWTClaims) FirstName() string {
	if c.GivenName != "" {
		return c.GivenName
	}
	for i, r := range c.Name {
		if r == ' ' {
			return c.Name[:i]
		}
	}
	return c.Name
}
