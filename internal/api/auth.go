package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const claimsKey ctxKey = iota

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func claimsFrom(r *http.Request) *Claims {
	c, _ := r.Context().Value(claimsKey).(*Claims)
	return c
}

// Auth handlers
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := generateRandomString(32)
	url := a.oauthConfig.AuthCodeURL(state)

	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": url,
		"state":    state,
	})
}

func (a *API) issueToken(userID, username string) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := jwtToken.SignedString(a.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}
	return tokenString, nil
}

func (a *API) authenticateUser(ctx context.Context, code string) (string, *DiscordUser, error) {
	token, err := a.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("token exchange failed: %w", err)
	}

	user, err := a.fetchDiscordUser(ctx, token)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}

	tokenString, err := a.issueToken(user.ID, user.Username)
	if err != nil {
		return "", nil, err
	}
	return tokenString, user, nil
}

// handleCallback finishes the Discord login. Browsers are sent back to the
// web UI with the token in the URL fragment; ?format=json answers inline.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	asJSON := r.URL.Query().Get("format") == "json"

	code := r.URL.Query().Get("code")
	if code == "" {
		if asJSON {
			writeMessage(w, http.StatusBadRequest, "missing code")
		} else {
			http.Redirect(w, r, a.config.WebUIBaseURL+"/login?error=missing_code", http.StatusSeeOther)
		}
		return
	}

	tokenString, user, err := a.authenticateUser(r.Context(), code)
	if err != nil {
		logger.Warnf("login failed: %v", err)
		if asJSON {
			writeMessage(w, http.StatusBadGateway, err.Error())
			return
		}
		http.Redirect(w, r, a.config.WebUIBaseURL+"/login?error="+loginErrorType(err), http.StatusSeeOther)
		return
	}

	if !asJSON {
		http.Redirect(w, r, a.config.WebUIBaseURL+"/login?success=true#token="+tokenString, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":        tokenString,
		"user_id":      user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName(),
	})
}

func loginErrorType(err error) string {
	switch {
	case strings.Contains(err.Error(), "token exchange"):
		return "token_exchange_failed"
	case strings.Contains(err.Error(), "failed to get user"):
		return "failed_to_get_user"
	case strings.Contains(err.Error(), "failed to create token"):
		return "failed_to_create_token"
	}
	return "authentication_failed"
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out",
	})
}

// Middleware
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeMessage(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			writeMessage(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return a.jwtSecret, nil
		})

		if err != nil || !token.Valid || claims.Username == "" {
			writeMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r)
		if claims == nil || !a.config.IsAdmin(claims.UserID) {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
