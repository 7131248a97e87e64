package authmw

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("tokens-test-secret")

func TestIssueAndValidateRoundtrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	tok, err := issuer.Issue(42, "ada@example.com", "Ada Lovelace")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	auth := NewLocalAuth(testSecret)
	p, err := auth.validateLocal(tok)
	if err != nil {
		t.Fatalf("validateLocal: %v", err)
	}
	if p.ID != 42 || p.Email != "ada@example.com" || p.Fullname != "Ada Lovelace" {
		t.Errorf("principal = %+v", p)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("some other secret"), time.Hour)
	tok, err := issuer.Issue(7, "x@example.com", "X")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	auth := NewLocalAuth(testSecret)
	if _, err := auth.validateLocal(tok); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	now := time.Now()
	claims := localClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	auth := &TokenAuth{secret: testSecret}
	if _, err := auth.validateLocal(tok); err == nil {
		t.Error("expired token validated")
	}
}

func TestValidateRejectsBadSubject(t *testing.T) {
	for _, sub := range []string{"", "abc", "0", "-3"} {
		claims := localClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sub,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := NewLocalAuth(testSecret).validateLocal(tok); err == nil {
			t.Errorf("subject %q validated", sub)
		}
	}
}

func TestValidateRejectsUnexpectedAlg(t *testing.T) {
	// alg "none" must never pass, even with a well-formed payload
	claims := localClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewLocalAuth(testSecret).validateLocal(tok); err == nil {
		t.Error("unsigned token validated")
	}
}

func TestDefaultTTL(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, 0)
	if issuer.ttl != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h fallback", issuer.ttl)
	}
}

func TestRequireUserMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	issuer := NewTokenIssuer(testSecret, time.Hour)
	auth := NewLocalAuth(testSecret)

	e := gin.New()
	e.GET("/whoami", auth.RequireUser(), func(c *gin.Context) {
		p, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no principal"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": strconv.FormatInt(p.ID, 10), "email": p.Email})
	})

	tok, err := issuer.Issue(9, "who@example.com", "Who")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	do := func(mutate func(*http.Request)) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		mutate(req)
		w := httptest.NewRecorder()
		e.ServeHTTP(w, req)
		return w
	}

	w := do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) })
	if w.Code != http.StatusOK {
		t.Errorf("bearer header: got %d, body %s", w.Code, w.Body.String())
	}

	// cookie fallback carries the same token
	w = do(func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access_token", Value: tok}) })
	if w.Code != http.StatusOK {
		t.Errorf("cookie token: got %d, body %s", w.Code, w.Body.String())
	}

	w = do(func(r *http.Request) {})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", w.Code)
	}

	w = do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") })
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: got %d, want 401", w.Code)
	}
}
