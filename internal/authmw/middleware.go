package authmw

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "auth.principal"

// Principal is the authenticated user behind a request, resolved before any
// authorization check runs.
type Principal struct {
	ID       int64
	Email    string
	Fullname string
}

// UserResolver maps an externally-authenticated identity onto a local user
// row, provisioning one if needed.
type UserResolver interface {
	ResolveUser(ctx context.Context, email, fullname string) (int64, error)
}

// TokenAuth validates bearer tokens on incoming requests. In local mode it
// verifies HS256 tokens minted by this service; in keycloak mode it verifies
// RS256 tokens against the realm JWKS.
type TokenAuth struct {
	secret []byte

	jwks     *keyfunc.JWKS
	issuer   string
	audience string
	resolver UserResolver

	leeway time.Duration
}

// NewLocalAuth builds a validator for tokens issued by a TokenIssuer sharing
// the same secret.
func NewLocalAuth(secret []byte) *TokenAuth {
	return &TokenAuth{
		secret: secret,
		leeway: 30 * time.Second,
	}
}

// NewKeycloakAuth fetches the realm JWKS once at startup and keeps it
// refreshed in the background.
func NewKeycloakAuth(jwksURL, issuer, audience string, resolver UserResolver) (*TokenAuth, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:  time.Hour,
		RefreshRateLimit: time.Minute * 5,
		RefreshTimeout:   time.Second * 10,
	})
	if err != nil {
		return nil, err
	}

	return &TokenAuth{
		jwks:     jwks,
		issuer:   issuer,
		audience: audience,
		resolver: resolver,
		leeway:   30 * time.Second,
	}, nil
}

type localClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Name  string `json:"name"`
}

type kcClaims struct {
	jwt.RegisteredClaims

	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
}

// RequireUser aborts with 401 unless the request carries a valid token, and
// stores the resolved Principal in the gin context for the handlers.
func (a *TokenAuth) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := extractAccessToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "detail": err.Error()})

			return
		}

		var p Principal
		if a.jwks != nil {
			p, err = a.validateKeycloak(c.Request.Context(), tokenStr)
		} else {
			p, err = a.validateLocal(tokenStr)
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "detail": "invalid token"})

			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

func (a *TokenAuth) validateLocal(tokenStr string) (Principal, error) {
	claims := &localClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithLeeway(a.leeway),
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return Principal{}, err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, errors.New("bad subject claim")
	}

	return Principal{ID: id, Email: claims.Email, Fullname: claims.Name}, nil
}

func (a *TokenAuth) validateKeycloak(ctx context.Context, tokenStr string) (Principal, error) {
	claims := &kcClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, a.jwks.Keyfunc,
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithLeeway(a.leeway),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil {
		return Principal{}, err
	}

	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}
	if email == "" {
		return Principal{}, errors.New("token carries no identity")
	}

	id, err := a.resolver.ResolveUser(ctx, email, claims.Name)
	if err != nil {
		return Principal{}, err
	}

	return Principal{ID: id, Email: email, Fullname: claims.Name}, nil
}

// CurrentUser retrieves the principal stored by RequireUser.
func CurrentUser(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func extractAccessToken(c *gin.Context) (string, error) {
	// 1) Authorization: Bearer <token>
	authz := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[7:]), nil
	}

	// 2) cookie fallback
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie, nil
	}

	return "", errors.New("missing access token")
}
