// Package forum submits posts to a Reddit subreddit.
package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/starford/planetfeed/internal/apperr"
)

// Default Reddit endpoints.
const (
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"
	DefaultAPIURL   = "https://oauth.reddit.com"
)

// Submitter posts to the forum. A refusal of the submission form (banned
// domain, disallowed post kind) is reported as apperr.ErrRejected; any other
// error means the forum could not be reached or authenticated.
type Submitter interface {
	SubmitLink(ctx context.Context, title, link string) (string, error)
	SubmitText(ctx context.Context, title, text string) (string, error)
}

// Config holds Reddit script-app credentials and endpoints.
type Config struct {
	Subreddit    string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	TokenURL     string
	APIURL       string
	Timeout      time.Duration
}

// Reddit is a Submitter using the OAuth API. The access token is obtained on
// the first submission, so runs that post nothing never authenticate.
type Reddit struct {
	cfg    Config
	oauth  *oauth2.Config
	client *http.Client
}

var _ Submitter = (*Reddit)(nil)

// NewReddit returns a client for cfg. Empty endpoints fall back to reddit.com.
func NewReddit(cfg Config) *Reddit {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Reddit{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: []string{"submit"},
		},
	}
}

// SubmitLink posts title as a link post pointing at link.
func (r *Reddit) SubmitLink(ctx context.Context, title, link string) (string, error) {
	return r.submit(ctx, url.Values{"kind": {"link"}, "title": {title}, "url": {link}})
}

// SubmitText posts title as a self post with text as its body.
func (r *Reddit) SubmitText(ctx context.Context, title, text string) (string, error) {
	return r.submit(ctx, url.Values{"kind": {"self"}, "title": {title}, "text": {text}})
}

type submitResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			URL  string `json:"url"`
			Name string `json:"name"`
		} `json:"data"`
	} `json:"json"`
}

func (r *Reddit) submit(ctx context.Context, form url.Values) (string, error) {
	client, err := r.httpClient(ctx)
	if err != nil {
		return "", err
	}

	form.Set("sr", r.cfg.Subreddit)
	form.Set("api_type", "json")
	form.Set("resubmit", "true")
	form.Set("sendreplies", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.APIURL+"/api/submit", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("forum: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("forum: submit: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("forum: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("forum: submit returned %d: %s", resp.StatusCode, body)
	}

	var out submitResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("forum: decode response: %w", err)
	}
	if len(out.JSON.Errors) > 0 {
		return "", fmt.Errorf("forum: %w: %s", apperr.ErrRejected, formatErrors(out.JSON.Errors))
	}
	return out.JSON.Data.URL, nil
}

// httpClient authenticates with the password grant on first use.
func (r *Reddit) httpClient(ctx context.Context) (*http.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	base := &http.Client{
		Timeout:   r.cfg.Timeout,
		Transport: userAgent{agent: r.cfg.UserAgent, next: http.DefaultTransport},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	tok, err := r.oauth.PasswordCredentialsToken(ctx, r.cfg.Username, r.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("forum: authenticate: %w", err)
	}
	client := r.oauth.Client(ctx, tok)
	client.Timeout = r.cfg.Timeout
	r.client = client
	return client, nil
}

// formatErrors renders Reddit's [[code, message, field], ...] error list.
func formatErrors(errs [][]any) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		var fields []string
		for _, f := range e {
			if f != nil {
				fields = append(fields, fmt.Sprint(f))
			}
		}
		parts = append(parts, strings.Join(fields, ": "))
	}
	return strings.Join(parts, "; ")
}

// userAgent sets the User-Agent header Reddit requires on every request.
type userAgent struct {
	agent string
	next  http.RoundTripper
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if u.agent == "" {
		return u.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", u.agent)
	return u.next.RoundTrip(req)
}
