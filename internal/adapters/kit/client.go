// Package kit is a client for the Kit.com V4 API.
package kit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

const (
	defaultBaseURL = "https://api.kit.com/v4"
	defaultTimeout = 30 * time.Second
)

// APIError is a non-2xx response from the Kit API. Status and body are kept
// so callers can surface the underlying failure to the user.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kit api: status %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	// APIKey is sent as X-Kit-Api-Key. AccessToken (OAuth) is used as a
	// Bearer token when no API key is set.
	APIKey      string
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// Client is a stateless request executor against the Kit.com V4 API.
// It implements domain.AccountAPI.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("kit: encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("kit: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Kit-Api-Key", c.cfg.APIKey)
	} else if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kit: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kit: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// ListTags returns all tags in the account, in API order.
func (c *Client) ListTags(ctx context.Context) ([]domain.Tag, error) {
	raw, err := c.request(ctx, http.MethodGet, "/tags", nil, nil)
	if err != nil {
		return nil, err
	}

	var tags []domain.Tag
	for _, t := range gjson.GetBytes(raw, "tags").Array() {
		tags = append(tags, domain.Tag{
			ID:   t.Get("id").Int(),
			Name: t.Get("name").String(),
		})
	}
	return tags, nil
}

func (c *Client) CreateTag(ctx context.Context, name string) (domain.Tag, error) {
	raw, err := c.request(ctx, http.MethodPost, "/tags", nil, map[string]string{"name": name})
	if err != nil {
		return domain.Tag{}, err
	}

	t := gjson.GetBytes(raw, "tag")
	return domain.Tag{ID: t.Get("id").Int(), Name: t.Get("name").String()}, nil
}

func (c *Client) TagSubscriberByEmail(ctx context.Context, email string, tagID int64) (map[string]any, error) {
	path := "/tags/" + strconv.FormatInt(tagID, 10) + "/subscribers"
	raw, err := c.request(ctx, http.MethodPost, path, nil, map[string]string{"email_address": email})
	if err != nil {
		return nil, err
	}
	return objectAt(raw, "subscriber"), nil
}

func (c *Client) ListSubscribers(ctx context.Context, q domain.SubscriberQuery) ([]map[string]any, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("per_page", strconv.Itoa(q.Limit))
	}
	if q.SortBy != "" && q.SortOrder != "" {
		query.Set("sort_field", q.SortBy)
		query.Set("sort_order", q.SortOrder)
	}

	raw, err := c.request(ctx, http.MethodGet, "/subscribers", query, nil)
	if err != nil {
		return nil, err
	}
	return arrayAt(raw, "subscribers"), nil
}

// CountSubscribers returns a best-effort subscriber count. The API does not
// reliably expose a total, so the count is resolved by extractCount's
// candidate chain; when the first page carries no total the query is retried
// once at a larger page size before falling back to the array length.
func (c *Client) CountSubscribers(ctx context.Context) (int64, error) {
	query := url.Values{}
	query.Set("per_page", "1")
	query.Set("include_total_count", "true")

	raw, err := c.request(ctx, http.MethodGet, "/subscribers", query, nil)
	if err != nil {
		return 0, err
	}
	if n, ok := extractCount(raw); ok {
		return n, nil
	}

	if len(gjson.GetBytes(raw, "subscribers").Array()) == 0 {
		return 0, nil
	}

	// First page exposed no total; retry once with a larger page.
	query.Set("per_page", "100")
	large, err := c.request(ctx, http.MethodGet, "/subscribers", query, nil)
	if err != nil {
		return 0, err
	}
	if n, ok := extractCount(large); ok {
		return n, nil
	}
	return int64(len(gjson.GetBytes(large, "subscribers").Array())), nil
}

// SubscriberByEmail returns the first subscriber matching the address, or an
// empty map when none matches.
func (c *Client) SubscriberByEmail(ctx context.Context, email string) (map[string]any, error) {
	query := url.Values{}
	query.Set("email_address", email)

	raw, err := c.request(ctx, http.MethodGet, "/subscribers", query, nil)
	if err != nil {
		return nil, err
	}

	subscribers := arrayAt(raw, "subscribers")
	if len(subscribers) == 0 {
		return map[string]any{}, nil
	}
	return subscribers[0], nil
}

func (c *Client) ListForms(ctx context.Context) ([]map[string]any, error) {
	raw, err := c.request(ctx, http.MethodGet, "/forms", nil, nil)
	if err != nil {
		return nil, err
	}
	return arrayAt(raw, "forms"), nil
}

func (c *Client) CreateForm(ctx context.Context, name, redirectURL string) (map[string]any, error) {
	payload := map[string]string{"name": name}
	if redirectURL != "" {
		payload["redirect_url"] = redirectURL
	}

	raw, err := c.request(ctx, http.MethodPost, "/forms", nil, payload)
	if err != nil {
		return nil, err
	}
	return objectAt(raw, "form"), nil
}

func (c *Client) ListBroadcasts(ctx context.Context, limit int) ([]map[string]any, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("per_page", strconv.Itoa(limit))
	}

	raw, err := c.request(ctx, http.MethodGet, "/broadcasts", query, nil)
	if err != nil {
		return nil, err
	}
	return arrayAt(raw, "broadcasts"), nil
}

func (c *Client) CreateBroadcast(ctx context.Context, draft domain.BroadcastDraft) (map[string]any, error) {
	payload := map[string]string{
		"subject": draft.Subject,
		"content": draft.Content,
	}
	if draft.EmailTemplateID != "" {
		payload["email_template_id"] = draft.EmailTemplateID
	}

	raw, err := c.request(ctx, http.MethodPost, "/broadcasts", nil, payload)
	if err != nil {
		return nil, err
	}
	return objectAt(raw, "broadcast"), nil
}

// AccountInfo returns the authenticated account's details.
func (c *Client) AccountInfo(ctx context.Context) (map[string]any, error) {
	raw, err := c.request(ctx, http.MethodGet, "/account", nil, nil)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("kit: decode account response: %w", err)
	}
	return out, nil
}

func objectAt(raw []byte, path string) map[string]any {
	if m, ok := gjson.GetBytes(raw, path).Value().(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func arrayAt(raw []byte, path string) []map[string]any {
	items := gjson.GetBytes(raw, path).Array()
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.Value().(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
