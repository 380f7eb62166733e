package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxClaimsKey = "auth_claims"
	CookieName   = "admin_token"
	LoginPage    = "/adminlogin"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrForbidden       = errors.New("admin access required")
)

// SessionFromRequest reads the session cookie, falling back to a bearer
// header for non-browser clients.
func SessionFromRequest(c *gin.Context, tokens TokenService) (*Claims, error) {
	raw, err := c.Cookie(CookieName)
	if err != nil || raw == "" {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return nil, ErrUnauthenticated
		}
		raw = strings.TrimSpace(h[len("Bearer "):])
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

func adminClaims(c *gin.Context, tokens TokenService) (*Claims, error) {
	claims, err := SessionFromRequest(c, tokens)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() {
		return claims, ErrForbidden
	}
	return claims, nil
}

// RequireAdmin guards JSON endpoints.
func RequireAdmin(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := adminClaims(c, tokens)
		switch {
		case errors.Is(err, ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// PageGuard redirects browser requests under /admin to the login page when
// there is no admin session. Install it with router.Use so unknown admin
// paths are covered too.
func PageGuard(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p != "/admin" && !strings.HasPrefix(p, "/admin/") {
			c.Next()
			return
		}
		claims, err := adminClaims(c, tokens)
		if err != nil {
			c.Redirect(http.StatusFound, LoginPage)
			c.Abort()
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
