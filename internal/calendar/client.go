// Package calendar renews the push-notification watch channels registered
// with the calendar provider before they expire.
package calendar

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	tokenURL    = "https://oauth2.googleapis.com/token"
	calendarAPI = "https://www.googleapis.com/calendar/v3"
)

// Client is a thin REST client for the provider's OAuth and watch
// endpoints.
type Client struct {
	http         *resty.Client
	clientID     string
	clientSecret string
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		http:         resty.New().SetTimeout(30 * time.Second),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	var token tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"refresh_token": refreshToken,
			"grant_type":    "refresh_token",
		}).
		SetResult(&token).
		Post(tokenURL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("refresh token request: %w", err)
	}
	if resp.IsError() {
		return "", time.Time{}, fmt.Errorf("refresh token: provider returned %d: %s", resp.StatusCode(), resp.String())
	}
	return token.AccessToken, time.Now().Add(time.Duration(token.ExpiresIn) * time.Second), nil
}

// StopChannel tells the provider to stop delivering to a watch channel.
func (c *Client) StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]string{
			"id":         channelID,
			"resourceId": resourceID,
		}).
		Post(calendarAPI + "/channels/stop")
	if err != nil {
		return fmt.Errorf("stop channel request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("stop channel: provider returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

type watchResponse struct {
	ResourceID string `json:"resourceId"`
	Expiration string `json:"expiration"` // unix millis as string
}

// CreateWatch registers a new watch channel on the calendar and returns
// the provider resource ID and the expiration it granted.
func (c *Client) CreateWatch(ctx context.Context, accessToken, calendarID, channelID, webhookURL string, ttl time.Duration) (string, time.Time, error) {
	var watch watchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]any{
			"id":      channelID,
			"type":    "web_hook",
			"address": webhookURL,
			"params": map[string]string{
				"ttl": strconv.Itoa(int(ttl.Seconds())),
			},
		}).
		SetResult(&watch).
		Post(fmt.Sprintf("%s/calendars/%s/events/watch", calendarAPI, calendarID))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create watch request: %w", err)
	}
	if resp.IsError() {
		return "", time.Time{}, fmt.Errorf("create watch: provider returned %d: %s", resp.StatusCode(), resp.String())
	}

	expiration := time.Now().Add(ttl)
	if millis, err := strconv.ParseInt(watch.Expiration, 10, 64); err == nil {
		expiration = time.UnixMilli(millis)
	}
	return watch.ResourceID, expiration, nil
}
