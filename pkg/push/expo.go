package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"leaguesync/pkg/logger"
)

// DefaultEndpoint is the Expo push API
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// Message is one push addressed to a single device token
type Message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

type ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

type sendResponse struct {
	Data   []ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// ExpoTransport sends notifications through an Expo-compatible push endpoint
type ExpoTransport struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewExpoTransport creates a transport; every request is bounded by timeout
func NewExpoTransport(endpoint, accessToken string, timeout time.Duration, log *logger.Logger) *ExpoTransport {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &ExpoTransport{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
	}
}

// Send delivers one message. A non-ok ticket is reported as an error.
func (t *ExpoTransport) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	jsonBody, err := json.Marshal([]Message{{
		To:    token,
		Title: title,
		Body:  body,
		Data:  data,
		Sound: "default",
	}})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.accessToken))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call push endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.logger.WithFields(map[string]interface{}{
			"response_body": string(respBody),
			"status_code":   resp.StatusCode,
		}).Error("Failed to parse push response")
		return fmt.Errorf("failed to parse push response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		return fmt.Errorf("push request rejected: %s: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
	}
	if len(parsed.Data) == 0 {
		return fmt.Errorf("push response carried no ticket")
	}
	if tk := parsed.Data[0]; tk.Status != "ok" {
		return fmt.Errorf("push ticket %s: %s (%s)", tk.Status, tk.Message, tk.Details.Error)
	}

	t.logger.WithField("ticket_id", parsed.Data[0].ID).Debug("Push notification accepted")
	return nil
}
