package models

// Profile is what GET /user returns to the frontend.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// DiscordUser is the subset of GET /users/@me the backend reads.
type DiscordUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"` // null for users on the default avatar

	// Set when the provider answers with an error document instead of a user.
	Error string `json:"error,omitempty"`
}
