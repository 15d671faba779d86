package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventscout/internal/domain"
	"eventscout/internal/infra/metrics"
)

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// ErrNoCredentials возвращается при незаполненных настройках OAuth.
var ErrNoCredentials = errors.New("googleauth: не заданы client_id или client_secret")

// Client реализует OAuth-код-флоу Google: ссылка авторизации, обмен кода
// на токен и загрузка профиля.
type Client struct {
	http         *http.Client
	clientID     string
	clientSecret string
	redirectURL  string
	authURL      string
	tokenURL     string
	userInfoURL  string
}

// NewClient создаёт OAuth-клиента.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		authURL:      defaultAuthURL,
		tokenURL:     defaultTokenURL,
		userInfoURL:  defaultUserInfoURL,
	}
}

// AuthorizeURL строит ссылку на страницу согласия Google.
// state передаётся обратно на редирект как есть.
func (c *Client) AuthorizeURL(state string) (string, error) {
	if c.clientID == "" {
		return "", ErrNoCredentials
	}
	params := url.Values{}
	params.Set("client_id", c.clientID)
	params.Set("redirect_uri", c.redirectURL)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("access_type", "online")
	if state != "" {
		params.Set("state", state)
	}
	return c.authURL + "?" + params.Encode(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange обменивает авторизационный код на access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrNoCredentials
	}
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("googleauth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("googleauth", "token_exchange", "oauth", start, err)
	if err != nil {
		return "", fmt.Errorf("googleauth: обмен кода: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("googleauth: read response: %w", err)
	}
	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("googleauth: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("googleauth: %s: %s", parsed.Error, parsed.ErrorDesc)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("googleauth: пустой access token, статус %d", resp.StatusCode)
	}
	return parsed.AccessToken, nil
}

type userInfoResponse struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Profile загружает профиль пользователя по access token.
func (c *Client) Profile(ctx context.Context, accessToken string) (domain.GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("googleauth: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("googleauth", "userinfo", "oauth", start, err)
	if err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("googleauth: загрузка профиля: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.GoogleProfile{}, fmt.Errorf("googleauth: unexpected status %d", resp.StatusCode)
	}
	var parsed userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.GoogleProfile{}, fmt.Errorf("googleauth: decode response: %w", err)
	}
	if parsed.Email == "" {
		return domain.GoogleProfile{}, errors.New("googleauth: провайдер не вернул email")
	}
	return domain.GoogleProfile{
		Email:   parsed.Email,
		Name:    parsed.Name,
		Picture: parsed.Picture,
	}, nil
}
