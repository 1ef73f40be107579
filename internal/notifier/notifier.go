package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Notifier delivers human-readable announcements (weekly reports, milestone
// celebrations) to wherever the operator wants them.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes announcements to the process log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (l *LogNotifier) Send(_ context.Context, text string) error {
	log.Printf("[INFO] notify: %s", text)
	return nil
}

// WebhookNotifier POSTs announcements as JSON to a configured URL, retrying
// with exponential backoff.
type WebhookNotifier struct {
	URL        string
	Client     *http.Client
	MaxRetries int
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:        url,
		Client:     &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, text string) error {
	var lastErr error
	for i := 0; i <= w.MaxRetries; i++ {
		if err := w.post(ctx, text); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Printf("[WARN] webhook send failed (attempt %d/%d): %v, retrying in %v", i+1, w.MaxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", w.MaxRetries+1, lastErr)
}

func (w *WebhookNotifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
