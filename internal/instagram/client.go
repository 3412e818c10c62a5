package instagram

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wezaxy/dmagent/internal/creds"
)

const (
	defaultBaseURL = "https://i.instagram.com"
	appID          = "567067343352427"
	userAgent      = "Instagram 342.0.0.33.103 Android (31/12; 454dpi; 1080x2254; Xiaomi/Redmi; Redmi Note 9 Pro; joyeuse; qcom; tr_TR; 627400398)"
)

// Auth is the credential pair every authenticated call needs.
type Auth struct {
	Token     string
	AccountID string
}

// Client talks to the private mobile API. One HTTP call per method; retry
// policy belongs to the caller.
type Client struct {
	// BaseURL is overridable for tests.
	BaseURL  string
	DeviceID string

	http *http.Client
}

// NewClient creates a Client with the given device identity.
func NewClient(deviceID string) *Client {
	return &Client{
		BaseURL:  defaultBaseURL,
		DeviceID: deviceID,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// clientFor returns the HTTP client to use for one attempt, routing through
// proxy when non-empty ("host:port" or "user:pass@host:port").
func (c *Client) clientFor(proxy string) (*http.Client, error) {
	if proxy == "" {
		return c.http, nil
	}
	proxyURL, err := url.Parse("http://" + proxy)
	if err != nil {
		return nil, fmt.Errorf("instagram: proxy %q: %w", proxy, err)
	}
	return &http.Client{
		Timeout:   c.http.Timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}, nil
}

func (c *Client) headers(auth *Auth) http.Header {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	h.Set("User-Agent", userAgent)
	h.Set("X-IG-App-ID", appID)
	h.Set("X-IG-Android-ID", c.DeviceID)
	h.Set("X-IG-Device-ID", c.DeviceID)
	h.Set("X-IG-Capabilities", "3brTv10=")
	h.Set("X-IG-Connection-Type", "WIFI")
	h.Set("X-FB-Connection-Type", "WIFI")
	h.Set("X-Pigeon-Rawclienttime", ts)
	h.Set("X-Pigeon-Session-Id", "UFS-"+uuid.NewString())
	if auth != nil {
		h.Set("Authorization", auth.Token)
		h.Set("IG-INTENDED-USER-ID", auth.AccountID)
		h.Set("IG-U-DS-USER-ID", auth.AccountID)
	}
	return h
}

// fetchEncryptionKey obtains the rotating password-encryption public key.
// Refetched per login attempt, never cached.
func (c *Client) fetchEncryptionKey(ctx context.Context, proxy string) (int, string, error) {
	hc, err := c.clientFor(proxy)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/qe/sync/", nil)
	if err != nil {
		return 0, "", err
	}
	req.Header = c.headers(nil)

	resp, err := hc.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("instagram: key sync: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	keyID, err := strconv.Atoi(resp.Header.Get("ig-set-password-encryption-key-id"))
	if err != nil {
		return 0, "", fmt.Errorf("instagram: missing encryption key id: %w", ErrMalformed)
	}
	pubKey := resp.Header.Get("ig-set-password-encryption-pub-key")
	if pubKey == "" {
		return 0, "", fmt.Errorf("instagram: missing encryption public key: %w", ErrMalformed)
	}
	return keyID, pubKey, nil
}

// Login performs password authentication and returns the session pair.
func (c *Client) Login(ctx context.Context, username, password, proxy string) (Auth, error) {
	keyID, pubKey, err := c.fetchEncryptionKey(ctx, proxy)
	if err != nil {
		return Auth{}, err
	}

	sealed, err := creds.Seal(password, keyID, pubKey, time.Now())
	if err != nil {
		return Auth{}, err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", sealed)
	form.Set("device_id", c.DeviceID)
	form.Set("phone_id", uuid.NewString())
	form.Set("guid", uuid.NewString())
	form.Set("adid", uuid.NewString())
	form.Set("google_tokens", "[]")
	form.Set("login_attempt_count", "0")
	form.Set("country_codes", `[{"country_code":"1","source":["default"]}]`)

	hc, err := c.clientFor(proxy)
	if err != nil {
		return Auth{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v1/accounts/login/", strings.NewReader(form.Encode()))
	if err != nil {
		return Auth{}, err
	}
	req.Header = c.headers(nil)

	resp, err := hc.Do(req)
	if err != nil {
		return Auth{}, fmt.Errorf("instagram: login: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Auth{}, fmt.Errorf("instagram: login read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Auth{}, fmt.Errorf("instagram: login status %d: %w", resp.StatusCode, ErrAuth)
	}

	token := resp.Header.Get("ig-set-authorization")
	if token == "" {
		return Auth{}, fmt.Errorf("instagram: login response missing authorization: %w", ErrMalformed)
	}

	var parsed struct {
		LoggedInUser struct {
			PK json.Number `json:"pk"`
		} `json:"logged_in_user"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Auth{}, fmt.Errorf("instagram: login body: %v: %w", err, ErrMalformed)
	}

	return Auth{Token: token, AccountID: parsed.LoggedInUser.PK.String()}, nil
}

// FetchInbox performs one poll of the inbox and returns normalized threads.
// Classifies logout and rate-limit markers before parsing.
func (c *Client) FetchInbox(ctx context.Context, auth Auth, proxy string) ([]Thread, error) {
	hc, err := c.clientFor(proxy)
	if err != nil {
		return nil, err
	}

	endpoint := c.BaseURL + "/api/v1/direct_v2/inbox/?persistentBadging=true&use_unified_inbox=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header = c.headers(&auth)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instagram: inbox: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("instagram: inbox status %d: %w", resp.StatusCode, ErrAuth)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("instagram: inbox read: %w", err)
	}

	var parsed inboxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("instagram: inbox body: %v: %w", err, ErrMalformed)
	}
	if len(parsed.LogoutReason) > 0 && string(parsed.LogoutReason) != "null" {
		return nil, fmt.Errorf("instagram: logged out (%s): %w", parsed.LogoutReason, ErrAuth)
	}
	if len(parsed.IsSpam) > 0 && string(parsed.IsSpam) != "null" {
		return nil, fmt.Errorf("instagram: spam flag set: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram: inbox status %d: %w", resp.StatusCode, ErrMalformed)
	}

	threads := make([]Thread, 0, len(parsed.Inbox.Threads))
	for _, wt := range parsed.Inbox.Threads {
		threads = append(threads, wt.normalize())
	}
	return threads, nil
}

// SendMessage sends one text chunk into a thread as a reply to itemID.
func (c *Client) SendMessage(ctx context.Context, auth Auth, threadID, itemID string, recipients []string, text, proxy string) error {
	form := url.Values{}
	form.Set("action", "send_item")
	form.Set("text", text)
	form.Set("thread_id", threadID)
	form.Set("replied_to_item_id", itemID)
	form.Set("recipient_users", recipientList(recipients))
	form.Set("device_id", c.DeviceID)
	form.Set("client_context", uuid.NewString())
	form.Set("mutation_token", uuid.NewString())

	return c.broadcast(ctx, auth, "/api/v1/direct_v2/threads/broadcast/text/", form, proxy)
}

// SendTyping raises the "is typing…" indicator on a thread.
func (c *Client) SendTyping(ctx context.Context, auth Auth, threadID, proxy string) error {
	form := url.Values{}
	form.Set("activity_status", "1")
	form.Set("client_context", uuid.NewString())

	path := fmt.Sprintf("/api/v1/direct_v2/threads/%s/indicate_activity/", threadID)
	return c.broadcast(ctx, auth, path, form, proxy)
}

// SendReaction sends an animated-media (GIF) item into a thread.
func (c *Client) SendReaction(ctx context.Context, auth Auth, threadID, itemID string, recipients []string, gifID, proxy string) error {
	form := url.Values{}
	form.Set("action", "send_item")
	form.Set("send_attribution", "giphy")
	form.Set("id", gifID)
	form.Set("is_sticker", "0")
	form.Set("thread_id", threadID)
	form.Set("item_id", itemID)
	form.Set("recipient_users", recipientList(recipients))
	form.Set("device_id", c.DeviceID)
	form.Set("client_context", uuid.NewString())
	form.Set("mutation_token", uuid.NewString())

	return c.broadcast(ctx, auth, "/api/v1/direct_v2/threads/broadcast/animated_media/", form, proxy)
}

func (c *Client) broadcast(ctx context.Context, auth Auth, path string, form url.Values, proxy string) error {
	hc, err := c.clientFor(proxy)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header = c.headers(&auth)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("instagram: %s: %w", path, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("instagram: %s status %d: %w", path, resp.StatusCode, ErrAuth)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("instagram: %s status %d: %w", path, resp.StatusCode, ErrMalformed)
	}
	return nil
}

// DownloadImage fetches an inbox image and returns it base64-encoded for the
// multimodal responder.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("instagram: image download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("instagram: image download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("instagram: image read: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// recipientList renders recipients as the nested JSON array the form
// endpoints expect: [["123","456"]].
func recipientList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return "[[" + strings.Join(quoted, ",") + "]]"
}
