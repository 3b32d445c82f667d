package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chathub/pkg/errdefs"
)

// Claims is the JWT payload issued for a signed-in user.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenPair bundles the access token with its longer-lived refresh
// token, both HS256-signed with the same secret.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Tokens issues and verifies JWTs.
type Tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokens builds a token issuer. TTLs of zero fall back to 24h access
// and 7d refresh.
func NewTokens(secret string, accessTTL, refreshTTL time.Duration) *Tokens {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue signs a fresh token pair for the user.
func (t *Tokens) Issue(userID, username string) (*TokenPair, error) {
	now := time.Now().UTC()
	access, err := t.sign(userID, username, now, now.Add(t.accessTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := t.sign(userID, username, now, now.Add(t.refreshTTL))
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(t.accessTTL).Unix(),
	}, nil
}

func (t *Tokens) sign(userID, username string, issued, expires time.Time) (string, error) {
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses a token string and returns its claims. Expired, malformed
// or wrongly signed tokens all surface as authentication errors.
func (t *Tokens) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errdefs.Authenticationf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, errdefs.Authenticationf("invalid token")
	}
	if claims.UserID == "" {
		return nil, errdefs.Authenticationf("token missing subject")
	}
	return claims, nil
}

// Refresh verifies a refresh token and issues a new pair for the same
// user.
func (t *Tokens) Refresh(refreshToken string) (*TokenPair, *Claims, error) {
	claims, err := t.Verify(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	pair, err := t.Issue(claims.UserID, claims.Username)
	if err != nil {
		return nil, nil, err
	}
	return pair, claims, nil
}
