// internal/handlers/oauth.go
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"pharmaguard-back/internal/auth"
	"pharmaguard-back/internal/config"
	"pharmaguard-back/internal/models"
)

const (
	stateCookieName = "oauth_state"
	nonceCookieName = "oauth_nonce"

	// state and nonce cookies are single-use and short-lived.
	oauthCookieMaxAge = 600
)

// IDTokenVerifier validates a provider-signed ID token.
type IDTokenVerifier interface {
	Verify(idToken string) (*auth.GoogleClaims, error)
}

// NewGoogleOAuthConfig builds the authorization-code flow configuration.
func NewGoogleOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"email", "profile", "openid"},
	}
}

func setOAuthCookie(c *gin.Context, cfg *config.Config, name, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, oauthCookieMaxAge, "/", "", cfg.IsProduction(), true)
}

func clearOAuthCookie(c *gin.Context, cfg *config.Config, name string) {
	c.SetCookie(name, "", -1, "/", "", cfg.IsProduction(), true)
}

// GoogleLogin redirects the browser to Google's consent screen with fresh
// state and nonce values bound to cookies. Offline access plus forced
// consent makes Google reissue a refresh token on every login.
func GoogleLogin(cfg *config.Config, oauthCfg *oauth2.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := auth.GenerateStateValue()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start Google login"})
			return
		}
		nonce, err := auth.GenerateStateValue()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start Google login"})
			return
		}

		setOAuthCookie(c, cfg, stateCookieName, state)
		setOAuthCookie(c, cfg, nonceCookieName, nonce)

		authURL := oauthCfg.AuthCodeURL(state,
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
			oauth2.SetAuthURLParam("nonce", nonce),
		)
		c.Redirect(http.StatusFound, authURL)
	}
}

// GoogleCallback finishes the OIDC flow: state check, code exchange,
// ID-token verification, identity reconciliation and session issuance.
// Unexpected failures redirect to the frontend login page instead of
// returning JSON; this is a browser flow end to end.
func GoogleCallback(db *gorm.DB, cfg *config.Config, oauthCfg *oauth2.Config, verifier IDTokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	loginErrorURL := cfg.FrontendURL + "/login?error=google_auth_failed"

	return func(c *gin.Context) {
		code := c.Query("code")
		state := c.Query("state")
		savedState, _ := c.Cookie(stateCookieName)
		savedNonce, _ := c.Cookie(nonceCookieName)

		// One-time use: drop both cookies before anything can fail.
		clearOAuthCookie(c, cfg, stateCookieName)
		clearOAuthCookie(c, cfg, nonceCookieName)

		if state == "" || savedState == "" || state != savedState {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid state parameter"})
			return
		}

		token, err := oauthCfg.Exchange(c.Request.Context(), code)
		if err != nil {
			logger.Error("google code exchange failed", slog.String("error", err.Error()))
			c.Redirect(http.StatusFound, loginErrorURL)
			return
		}

		idToken, ok := token.Extra("id_token").(string)
		if !ok || idToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No ID token received"})
			return
		}

		claims, err := verifier.Verify(idToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid ID token"})
			return
		}

		if claims.Nonce == "" || claims.Nonce != savedNonce {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid nonce"})
			return
		}

		user, err := reconcileGoogleIdentity(db, claims, token.RefreshToken)
		if err != nil {
			logger.Error("google identity reconciliation failed", slog.String("error", err.Error()))
			c.Redirect(http.StatusFound, loginErrorURL)
			return
		}

		sessionToken, err := auth.GenerateToken(user.ID, []byte(cfg.JWTSecret), cfg.JWTExpiry)
		if err != nil {
			logger.Error("failed to generate session token", slog.String("error", err.Error()))
			c.Redirect(http.StatusFound, loginErrorURL)
			return
		}

		setSessionCookie(c, cfg, sessionToken)

		redirect := fmt.Sprintf("%s/auth/google/callback?token=%s&name=%s&email=%s&id=%d",
			cfg.FrontendURL,
			url.QueryEscape(sessionToken),
			url.QueryEscape(user.Name),
			url.QueryEscape(user.Email),
			user.ID,
		)
		c.Redirect(http.StatusFound, redirect)
	}
}

// reconcileGoogleIdentity maps a verified ID token onto a local account:
// by Google subject first, then by email (linking the provider id to an
// existing account), creating a passwordless account otherwise.
func reconcileGoogleIdentity(db *gorm.DB, claims *auth.GoogleClaims, refreshToken string) (*models.User, error) {
	sub := claims.Subject

	var user models.User
	err := db.Where("google_id = ?", sub).First(&user).Error
	if err == nil {
		if refreshToken != "" {
			user.GoogleRefreshToken = refreshToken
		}
		if err := db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Where("email = ?", normalizeEmail(claims.Email)).First(&user).Error
	if err == nil {
		user.GoogleID = &sub
		user.IsVerified = true
		if user.ProfilePic == "" && claims.Picture != "" {
			user.ProfilePic = claims.Picture
		}
		if refreshToken != "" {
			user.GoogleRefreshToken = refreshToken
		}
		if err := db.Save(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := claims.Name
	if name == "" {
		name = strings.Split(claims.Email, "@")[0]
	}

	user = models.User{
		GoogleID:           &sub,
		Email:              normalizeEmail(claims.Email),
		Name:               name,
		ProfilePic:         claims.Picture,
		IsVerified:         true,
		GoogleRefreshToken: refreshToken,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
