package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	Repo         Repo
	Tokens       TokenService
	Log          *zap.Logger
	SecureCookie bool
}

func NewHandler(repo Repo, tokens TokenService, log *zap.Logger) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/Login", h.login)
	rg.POST("/logout", h.logout)
	rg.GET("/session", h.session)
	rg.POST("/register", h.register)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	password := strings.TrimSpace(req.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.Log.Error("login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if u == nil {
		// don't reveal which part failed
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if err := CheckPassword(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPlaintextPassword) {
			h.Log.Warn("plaintext password rejected; run catalogctl migrate-passwords",
				zap.String("email", email))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if u.Role != RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
		return
	}

	token, _, err := h.Tokens.Sign(u)
	if err != nil {
		h.Log.Error("sign session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(h.Tokens.Duration.Seconds()), "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "role": u.Role})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) session(c *gin.Context) {
	claims, err := SessionFromRequest(c, h.Tokens)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": claims.Role, "email": claims.Email})
}

func (h *Handler) register(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"error": "registration is disabled"})
}
