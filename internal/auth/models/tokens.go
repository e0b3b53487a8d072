package models

import "time"

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginResult pairs the caller's profile with freshly issued tokens.
type LoginResult struct {
	User   Profile
	Tokens TokenPair
}
