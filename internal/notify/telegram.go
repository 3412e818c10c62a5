// Package notify delivers operator alerts over a Telegram bot. Alerts are
// best-effort: delivery failures are logged, never propagated.
package notify

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// authAlertInterval rate-limits session-expiry alerts.
const authAlertInterval = time.Hour

// Notifier sends messages to the operator chat. A Notifier with no token is
// a no-op.
type Notifier struct {
	// BaseURL is overridable for tests.
	BaseURL string

	token  string
	chatID string
	http   *http.Client

	now           func() time.Time
	lastAuthAlert time.Time
}

// NewNotifier creates a notifier. Empty token or chatID disables delivery.
func NewNotifier(token, chatID string) *Notifier {
	return &Notifier{
		BaseURL: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
}

func (n *Notifier) enabled() bool {
	return n.token != "" && n.chatID != ""
}

// Notify sends one message to the operator chat.
func (n *Notifier) Notify(text string) {
	if !n.enabled() {
		return
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.BaseURL, n.token)
	resp, err := n.http.Post(endpoint, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("[Notify] telegram send failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Notify] telegram send status %d", resp.StatusCode)
	}
}

// NotifySessionExpired alerts that the env-sourced token is stale and cannot
// be repaired automatically. Rate-limited to once per hour; reports whether
// an alert actually went out.
func (n *Notifier) NotifySessionExpired(reason string) bool {
	if !n.enabled() {
		return false
	}
	now := n.now()
	if now.Sub(n.lastAuthAlert) < authAlertInterval {
		return false
	}
	n.lastAuthAlert = now

	n.Notify(fmt.Sprintf("⚠️ Instagram session expired (%s). No password is configured, so the agent keeps using the stale token. Set a new IG_AUTH_TOKEN to recover.", reason))
	return true
}

// NotifyFreshLogin propagates a newly issued token to deployments without
// automatic session sync.
func (n *Notifier) NotifyFreshLogin(token string) {
	n.Notify(fmt.Sprintf("🔑 Fresh Instagram login. New token:\n%s", token))
}
