package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Mavwarf/stillness/internal/config"
	"github.com/Mavwarf/stillness/internal/httputil"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/tmpl"
)

// Send posts body to the given URL as text/plain. Custom headers are
// applied after the default Content-Type, so callers can override it.
// Header values are expanded with os.ExpandEnv to support $VAR secrets.
func Send(url, body string, headers map[string]string) error {
	return post(url, body, "text/plain", headers)
}

func post(url, body, contentType string, headers map[string]string) error {
	req, err := httputil.NewRequest(context.Background(), "POST", url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, os.ExpandEnv(v))
	}

	resp, err := httputil.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	return httputil.CheckStatus(resp, "webhook")
}

// Payload builds the request body for format. Discord and Slack incoming
// webhooks take the message in "content" and "text" respectively; "json"
// sends the event itself with the expanded message alongside.
func Payload(format, msg string, ev session.Event) (body, contentType string, err error) {
	var v any
	switch format {
	case "":
		return msg, "text/plain", nil
	case "discord":
		v = map[string]string{"content": msg}
	case "slack":
		v = map[string]string{"text": msg}
	case "json":
		v = struct {
			session.Event
			Message string `json:"message"`
		}{ev, msg}
	default:
		return "", "", fmt.Errorf("webhook: unknown format %q", format)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", "", fmt.Errorf("webhook: marshal: %w", err)
	}
	return string(b), "application/json", nil
}

// Notifier posts announced session events in the background.
type Notifier struct {
	cfg config.Webhook
	wg  sync.WaitGroup
	log *slog.Logger
}

// Attach subscribes a Notifier to m. It returns nil when no URL is set.
func Attach(m *session.Machine, cfg config.Webhook) *Notifier {
	if cfg.URL == "" {
		return nil
	}
	n := &Notifier{cfg: cfg, log: observability.WithFields("component", "webhook")}
	m.Subscribe(n.handle)
	return n
}

func (n *Notifier) handle(ev session.Event) {
	if !session.Announced(ev.Kind) {
		return
	}
	msg := tmpl.Expand(n.cfg.Message, tmpl.FromEvent(ev))
	body, contentType, err := Payload(n.cfg.Format, msg, ev)
	if err != nil {
		n.log.Warn("payload", "event", ev.Kind, "err", err)
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := post(n.cfg.URL, body, contentType, n.cfg.Headers); err != nil {
			n.log.Warn("delivery failed", "event", ev.Kind, "err", err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
