package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// DiscordUser is the subset of the identify scope the game needs.
type DiscordUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
}

// DisplayName prefers the global name and falls back to the username.
func (u *DiscordUser) DisplayName() string {
	if u.GlobalName != nil && *u.GlobalName != "" {
		return *u.GlobalName
	}
	return u.Username
}

func (a *API) fetchDiscordUser(ctx context.Context, token *oauth2.Token) (*DiscordUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.discordAPI+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "geoguess/1.0 (+https://github.com/susu3304/geoguess)")

	resp, err := a.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord identify: status %d", resp.StatusCode)
	}

	var user DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("discord identify: %w", err)
	}
	if user.Username == "" {
		return nil, fmt.Errorf("discord identify: empty username")
	}
	return &user, nil
}
