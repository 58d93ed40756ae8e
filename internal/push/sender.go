package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("push gateway not configured")

// Message is one device notification.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
	ProviderID() string
}

// FCMSender talks to the FCM legacy HTTP endpoint.
type FCMSender struct {
	endpoint  string
	serverKey string
	http      *http.Client
}

func NewFCMSender(endpoint, serverKey string, client *http.Client) *FCMSender {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &FCMSender{
		endpoint:  strings.TrimSpace(endpoint),
		serverKey: strings.TrimSpace(serverKey),
		http:      client,
	}
}

func (s *FCMSender) ProviderID() string {
	return "fcm"
}

type fcmRequest struct {
	To           string            `json:"to"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

func (s *FCMSender) Send(ctx context.Context, msg Message) error {
	if s.endpoint == "" || s.serverKey == "" {
		return ErrNotConfigured
	}
	if msg.Token == "" {
		return errors.New("push token is empty")
	}

	raw, err := json.Marshal(fcmRequest{
		To:           msg.Token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode)
	}

	var out fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// A 2xx without a parsable body still counts as accepted.
		return nil
	}
	if out.Failure > 0 && out.Success == 0 {
		reason := "unknown"
		if len(out.Results) > 0 && out.Results[0].Error != "" {
			reason = out.Results[0].Error
		}
		return fmt.Errorf("fcm rejected message: %s", reason)
	}
	return nil
}

// NoopSender drops every message. It stands in when no server key is set.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "push-noop"
}

func (s *NoopSender) Send(_ context.Context, _ Message) error {
	return nil
}
