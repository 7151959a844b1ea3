// Package line реализует клиент LINE Platform: push-сообщения Messaging API,
// вход через LINE Login (OAuth 2.1), профиль пользователя и проверку подписи webhook.
//
// Messaging API и разбор webhook работают через line-bot-sdk-go. Обмен кода
// LINE Login и профиль по токену пользователя SDK не покрывает, они сделаны на net/http.
package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/magabrotheeeer/harvest-tracker/internal/config"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
)

// Пути LINE Login.
const (
	pathToken        = "/oauth2/v2.1/token"
	pathLoginProfile = "/v2/profile"
)

// Client обращается к LINE Platform.
type Client struct {
	channelID     string
	channelSecret string
	redirectURI   string
	apiURL        string
	authURL       string
	bot           *messaging_api.MessagingApiAPI
	httpClient    *http.Client
}

// NewClient создаёт клиент LINE по настройкам канала.
func NewClient(cfg config.Line) (*Client, error) {
	const op = "line.NewClient"

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.line.me"
	}
	apiURL = strings.TrimRight(apiURL, "/")
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = "https://access.line.me/oauth2/v2.1/authorize"
	}

	httpClient := &http.Client{Timeout: timeout}
	bot, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken,
		messaging_api.WithEndpoint(apiURL),
		messaging_api.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{
		channelID:     cfg.ChannelID,
		channelSecret: cfg.ChannelSecret,
		redirectURI:   cfg.RedirectURI,
		apiURL:        apiURL,
		authURL:       authURL,
		bot:           bot,
		httpClient:    httpClient,
	}, nil
}

// DeliveryError: отказ LINE Platform с кодом ответа.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("line api responded %d: %s", e.StatusCode, e.Body)
}

// Unwrap относит ошибку к виду ErrDelivery.
func (e *DeliveryError) Unwrap() error {
	return apperr.ErrDelivery
}

// Profile: профиль пользователя LINE.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// TokenResponse: ответ на обмен кода авторизации.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// messaging возвращает копию клиента SDK, привязанную к ctx.
// Общий клиент не меняется.
func (c *Client) messaging(ctx context.Context) *messaging_api.MessagingApiAPI {
	bot := *c.bot
	return bot.WithContext(ctx)
}

// apiError превращает отказ LINE с кодом ответа в DeliveryError.
func apiError(res *http.Response, err error) error {
	if res != nil && (res.StatusCode < 200 || res.StatusCode >= 300) {
		return &DeliveryError{StatusCode: res.StatusCode, Body: err.Error()}
	}
	return err
}

func closeBody(res *http.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}

// Push отправляет сообщения пользователю.
func (c *Client) Push(ctx context.Context, to string, messages ...messaging_api.MessageInterface) error {
	const op = "line.Push"
	if to == "" || len(messages) == 0 {
		return fmt.Errorf("%s: %w", op, apperr.Validation("recipient and message are required"))
	}

	res, _, err := c.messaging(ctx).PushMessageWithHttpInfo(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: messages,
	}, "")
	defer closeBody(res)
	if err != nil {
		return fmt.Errorf("%s: %w", op, apiError(res, err))
	}
	return nil
}

// PushText отправляет текстовое сообщение.
func (c *Client) PushText(ctx context.Context, to, text string) error {
	return c.Push(ctx, to, NewText(text))
}

// PushButtons отправляет сообщение с одной кнопкой-ссылкой.
func (c *Client) PushButtons(ctx context.Context, to, text, label, uri string) error {
	return c.Push(ctx, to, NewButtons(text, label, uri))
}

// GetBotProfile возвращает профиль пользователя, добавившего бота в друзья.
func (c *Client) GetBotProfile(ctx context.Context, userID string) (*Profile, error) {
	const op = "line.GetBotProfile"

	res, p, err := c.messaging(ctx).GetProfileWithHttpInfo(userID)
	defer closeBody(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apiError(res, err))
	}
	return &Profile{
		UserID:        p.UserId,
		DisplayName:   p.DisplayName,
		PictureURL:    p.PictureUrl,
		StatusMessage: p.StatusMessage,
	}, nil
}

// do выполняет запрос LINE Login и декодирует JSON-ответ в out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// AuthURL формирует ссылку авторизации LINE Login с переданным state.
func (c *Client) AuthURL(state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.channelID)
	params.Set("redirect_uri", c.redirectURI)
	params.Set("state", state)
	params.Set("scope", "profile openid")
	return c.authURL + "?" + params.Encode()
}

// ExchangeCode обменивает код авторизации на access token пользователя.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	const op = "line.ExchangeCode"

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("client_id", c.channelID)
	form.Set("client_secret", c.channelSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+pathToken, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok TokenResponse
	if err = c.do(req, &tok); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tok, nil
}

// GetLoginProfile возвращает профиль по access token пользователя LINE Login.
func (c *Client) GetLoginProfile(ctx context.Context, accessToken string) (*Profile, error) {
	const op = "line.GetLoginProfile"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+pathLoginProfile, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var p Profile
	if err = c.do(req, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
