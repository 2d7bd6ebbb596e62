// Package reddit implements the bot's transport to Reddit: polling the
// subreddit, posting replies, and checking or removing the bot's own replies.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/profilebot/internal/domain"
	"github.com/ignite/profilebot/internal/pkg/httpretry"
	"github.com/ignite/profilebot/internal/pkg/logger"
)

// Config holds what the client needs to log in and reach the API.
type Config struct {
	Subreddit         string
	Username          string
	Password          string
	ClientID          string
	ClientSecret      string
	UserAgent         string
	BaseURL           string
	AuthURL           string
	RequestsPerMinute int
	MaxRetries        int
	Timeout           time.Duration
}

// Client talks to the Reddit OAuth API as a script application.
type Client struct {
	cfg   Config
	oauth *oauth2.Config
	base  *http.Client
	log   *logger.Logger

	mu  sync.RWMutex
	api httpretry.HTTPDoer
}

// NewClient creates a client. Call Connect before any other method.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.AuthURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: []string{"identity", "read", "submit", "edit", "history"},
		},
		base: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &userAgentTransport{ua: cfg.UserAgent, next: http.DefaultTransport},
		},
		log: logger.With("component", "reddit"),
	}
}

// Connect logs in with the password grant and replaces the session. It is
// called on startup and again after every faulted cycle.
func (c *Client) Connect(ctx context.Context) error {
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.base)
	tok, err := c.oauth.PasswordCredentialsToken(tokenCtx, c.cfg.Username, c.cfg.Password)
	if err != nil {
		return fmt.Errorf("reddit: login as %s: %w", c.cfg.Username, err)
	}

	// The token source outlives ctx; it refreshes with the base client.
	srcCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	authed := oauth2.NewClient(srcCtx, c.oauth.TokenSource(srcCtx, tok))
	authed.Timeout = c.cfg.Timeout

	api := httpretry.NewRetryClient(authed, c.cfg.MaxRetries,
		httpretry.WithLimiter(httpretry.PerMinute(c.cfg.RequestsPerMinute)),
		httpretry.WithUserAgent(c.cfg.UserAgent))

	c.mu.Lock()
	c.api = api
	c.mu.Unlock()

	c.log.Info("connected", "user", c.cfg.Username, "subreddit", c.cfg.Subreddit)
	return nil
}

// FetchNewSubmissions returns the newest submissions in the subreddit, newest first.
func (c *Client) FetchNewSubmissions(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	l, err := c.getListing(ctx, "/r/"+c.cfg.Subreddit+"/new", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, fmt.Errorf("reddit: new submissions: %w", err)
	}
	return l.items(), nil
}

// FetchNewComments returns the newest comments in the subreddit, newest first.
func (c *Client) FetchNewComments(ctx context.Context, limit int) ([]domain.ContentItem, error) {
	l, err := c.getListing(ctx, "/r/"+c.cfg.Subreddit+"/comments", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return nil, fmt.Errorf("reddit: new comments: %w", err)
	}
	return l.items(), nil
}

// FetchOwnReplies returns the bot account's comments, newest first.
func (c *Client) FetchOwnReplies(ctx context.Context, limit int) ([]*domain.Comment, error) {
	l, err := c.getListing(ctx, "/user/"+c.cfg.Username+"/comments", url.Values{
		"limit": {strconv.Itoa(limit)},
		"sort":  {"new"},
	})
	if err != nil {
		return nil, fmt.Errorf("reddit: own comments: %w", err)
	}
	out := make([]*domain.Comment, 0, len(l.Data.Children))
	for _, t := range l.Data.Children {
		if t.Kind == "t1" {
			out = append(out, t.Data.comment())
		}
	}
	return out, nil
}

// PostReply comments text under parent and returns the new reply's record.
func (c *Client) PostReply(ctx context.Context, parent domain.ContentItem, text string) (domain.OwnPostRecord, error) {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {domain.Fullname(parent)},
		"text":     {text},
	}
	body, err := c.post(ctx, "/api/comment", form)
	if err != nil {
		return domain.OwnPostRecord{}, fmt.Errorf("reddit: reply to %s: %w", parent.ItemID(), err)
	}

	var resp commentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OwnPostRecord{}, fmt.Errorf("reddit: decode reply: %w", err)
	}
	if len(resp.JSON.Errors) > 0 {
		return domain.OwnPostRecord{}, fmt.Errorf("reddit: reply to %s rejected: %v", parent.ItemID(), resp.JSON.Errors)
	}
	if len(resp.JSON.Data.Things) == 0 {
		return domain.OwnPostRecord{}, fmt.Errorf("reddit: reply to %s: empty response", parent.ItemID())
	}

	d := resp.JSON.Data.Things[0].Data
	posted := unixTime(d.CreatedUTC)
	if d.CreatedUTC == 0 {
		posted = time.Now().UTC()
	}
	return domain.OwnPostRecord{
		ReplyID:      d.ID,
		DiscussionID: parent.DiscussionID(),
		PostedAt:     posted,
	}, nil
}

// FetchScore returns the current score of one of the bot's replies. Replies
// that were removed, deleted, or whose discussion is gone yield domain.ErrNotFound.
func (c *Client) FetchScore(ctx context.Context, rec domain.OwnPostRecord) (int, error) {
	l, err := c.getListing(ctx, "/api/info", url.Values{"id": {domain.KindComment + rec.ReplyID}})
	if err != nil {
		return 0, fmt.Errorf("reddit: score of %s: %w", rec.ReplyID, err)
	}
	for _, t := range l.Data.Children {
		if t.Data.ID != rec.ReplyID {
			continue
		}
		if t.Data.Author == deletedMarker || t.Data.Body == deletedMarker || t.Data.Body == "[removed]" {
			return 0, domain.ErrNotFound
		}
		return t.Data.Score, nil
	}
	return 0, domain.ErrNotFound
}

// DeleteReply removes one of the bot's replies.
func (c *Client) DeleteReply(ctx context.Context, replyID string) error {
	if _, err := c.post(ctx, "/api/del", url.Values{"id": {domain.KindComment + replyID}}); err != nil {
		return fmt.Errorf("reddit: delete %s: %w", replyID, err)
	}
	return nil
}

func (c *Client) doer() (httpretry.HTTPDoer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil, errors.New("not connected")
	}
	return c.api, nil
}

func (c *Client) getListing(ctx context.Context, path string, q url.Values) (listing, error) {
	q.Set("raw_json", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return listing{}, err
	}
	body, err := c.do(req)
	if err != nil {
		return listing{}, err
	}
	return decodeListing(body)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	api, err := c.doer()
	if err != nil {
		return nil, err
	}
	resp, err := api.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}

// userAgentTransport stamps the User-Agent Reddit requires on every call,
// including the token exchange.
type userAgentTransport struct {
	ua   string
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ua != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.next.RoundTrip(req)
}
