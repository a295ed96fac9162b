package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Plunk is the HTTP fallback when no SMTP host is configured.
// Required: PLUNK_API_KEY; optional: PLUNK_FROM, PLUNK_API_URL.

const defaultPlunkURL = "https://api.useplunk.com/v1/send"

type plunkClient struct {
	apiKey string
	from   string
	apiURL string
	http   *http.Client
}

var plunk *plunkClient

func plunkFromEnv() (*plunkClient, error) {
	key := os.Getenv("PLUNK_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("plunk not configured: set PLUNK_API_KEY")
	}
	url := os.Getenv("PLUNK_API_URL")
	if url == "" {
		url = defaultPlunkURL
	}
	return &plunkClient{
		apiKey: key,
		from:   os.Getenv("PLUNK_FROM"),
		apiURL: url,
		http:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type plunkMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func sendViaPlunk(to, subject, body string) error {
	if plunk == nil {
		c, err := plunkFromEnv()
		if err != nil {
			return err
		}
		plunk = c
	}

	msg := plunkMessage{
		To:      to,
		Subject: subject,
		Body:    body,
		From:    plunk.from,
		Reply:   os.Getenv("MAIL_REPLY_TO"),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, plunk.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+plunk.apiKey)

	resp, err := plunk.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if len(detail) > 0 {
			return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, detail)
		}
		return fmt.Errorf("plunk send failed: status=%d", resp.StatusCode)
	}
	return nil
}
