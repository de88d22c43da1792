package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/AnshRaj112/flags-survey-backend/internal/models"
)

// Scope requested from Discord; only the public profile is needed.
const Scope = "identify"

var (
	// ErrRejected means the provider answered but refused the request. Callers
	// surface it as a client error.
	ErrRejected = errors.New("oauth provider rejected the request")
	// ErrUnavailable covers transport failures and non-2xx token responses.
	ErrUnavailable = errors.New("oauth provider request failed")
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string // e.g. https://discord.com/api
	CDNBaseURL   string // e.g. https://cdn.discordapp.com
	Timeout      time.Duration
}

// Client performs the Discord side of the login: code exchange and profile fetch.
type Client struct {
	oauth      *oauth2.Config
	baseURL    string
	cdnBaseURL string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/oauth2/authorize",
				TokenURL:  base + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL:    base,
		cdnBaseURL: strings.TrimRight(cfg.CDNBaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL is where the browser goes to approve the application.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for an access token. Non-2xx
// responses and transport errors wrap ErrUnavailable; a 2xx body carrying an
// "error" field wraps ErrRejected.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("scope", Scope))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			status := re.Response.StatusCode
			if status >= 200 && status < 300 {
				return "", fmt.Errorf("%w: token endpoint returned error %q", ErrRejected, re.ErrorCode)
			}
			return "", fmt.Errorf("%w: token endpoint returned status %d", ErrUnavailable, status)
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return token.AccessToken, nil
}

// FetchProfile loads the caller's Discord profile with the bearer token.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*models.Profile, error) {
	// oauth2.NewClient drops the base client's Timeout, so bound the call here.
	ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := c.oauth.Client(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v9/users/@me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: users/@me returned status %d", ErrRejected, resp.StatusCode)
	}

	var user models.DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode user: %w", ErrRejected, err)
	}
	if user.Error != "" {
		return nil, fmt.Errorf("%w: users/@me returned error %q", ErrRejected, user.Error)
	}

	avatar := ""
	if user.Avatar != nil {
		avatar = *user.Avatar
	}
	return &models.Profile{
		ID:       user.ID,
		Username: user.Username,
		Avatar:   AvatarURL(c.cdnBaseURL, user.ID, avatar),
	}, nil
}

// AvatarURL builds the CDN URL for an avatar hash. Hashes starting with "a_"
// are animated and served as gif. Users without a custom avatar get the
// default embed avatar.
func AvatarURL(cdnBaseURL, userID, avatar string) string {
	if avatar == "" {
		return cdnBaseURL + "/embed/avatars/0.png"
	}
	ext := "png"
	if strings.HasPrefix(avatar, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("%s/avatars/%s/%s.%s", cdnBaseURL, userID, avatar, ext)
}
