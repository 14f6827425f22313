package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const plunkTrackURL = "https://api.useplunk.com/v1/track"

// Client delivers transactional email by tracking Plunk events; the templates
// bound to the events render the actual messages.
type Client struct {
	secretKey  string
	httpClient *http.Client
	trackURL   string
}

func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		trackURL:   plunkTrackURL,
	}
}

func (c *Client) SendVerificationEmail(email, firstName, code string) error {
	return c.track("user-signup", email, firstName, code)
}

func (c *Client) SendPasswordResetEmail(email, firstName, code string) error {
	return c.track("password-reset", email, firstName, code)
}

func (c *Client) track(event, email, firstName, code string) error {
	body, err := json.Marshal(map[string]any{
		"event": event,
		"email": email,
		"data": map[string]any{
			"OTP": map[string]any{
				"value":      code,
				"persistent": false,
			},
			"firstName": map[string]any{
				"value":      firstName,
				"persistent": false,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode event payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.trackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plunk request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("plunk request failed: %s", resp.Status)
	}
	return nil
}
