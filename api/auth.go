package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ouerghi0x/cv-maker-sub000/services"
	"github.com/ouerghi0x/cv-maker-sub000/utils"
)

// CredentialsRequest is the body of the signup and login endpoints.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupHandler creates a new account.
// POST /api/auth/signup
func (h *APIHandler) SignupHandler(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Missing email or password", err)
		return
	}

	_, err := h.authService.Signup(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			utils.SendJSONError(c, http.StatusBadRequest, "User already exists", nil)
			return
		}
		utils.SendJSONError(c, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created"})
}

// LoginHandler verifies credentials and sets the auth cookie.
// POST /api/auth/login
func (h *APIHandler) LoginHandler(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendJSONError(c, http.StatusBadRequest, "Missing email or password", err)
		return
	}

	token, _, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			utils.SendJSONError(c, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		utils.SendJSONError(c, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	maxAge := int(h.authService.TokenTTL().Seconds())
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(services.AuthCookieName, token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

// LogoutHandler clears the auth cookie.
// POST /api/auth/logout
func (h *APIHandler) LogoutHandler(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(services.AuthCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// MeHandler returns the authenticated principal, or a null user for
// guests; an unverifiable token is not an error here.
// GET /api/auth/me
func (h *APIHandler) MeHandler(c *gin.Context) {
	identity := h.identityService.Resolve(c.Request)
	if !identity.IsAuthenticated {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"userId": identity.Principal.UserID,
		"email":  identity.Principal.Email,
	}})
}
