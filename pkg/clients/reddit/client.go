package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"moneyradar/pkg/config"
	"moneyradar/pkg/logging"
)

// Config holds Reddit API settings. With ClientID and ClientSecret set the
// client authenticates against oauth.reddit.com; otherwise it reads the
// public JSON endpoints anonymously.
type Config struct {
	BaseURL      string
	AuthURL      string
	UserAgent    string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MaxRetries   int
}

// LoadConfig reads Reddit settings from the environment
func LoadConfig() Config {
	return Config{
		BaseURL:      config.GetEnv("REDDIT_BASE_URL", "https://www.reddit.com"),
		AuthURL:      config.GetEnv("REDDIT_AUTH_URL", "https://www.reddit.com/api/v1/access_token"),
		UserAgent:    config.GetEnv("REDDIT_USER_AGENT", "moneyradar/1.0"),
		ClientID:     config.GetEnv("REDDIT_CLIENT_ID", ""),
		ClientSecret: config.GetEnv("REDDIT_CLIENT_SECRET", ""),
		Timeout:      time.Duration(config.GetEnvInt("REDDIT_TIMEOUT_SECONDS", 15)) * time.Second,
		MaxRetries:   config.GetEnvInt("REDDIT_MAX_RETRIES", 3),
	}
}

// Client fetches subreddit listings and comment threads
type Client struct {
	http   *resty.Client
	cfg    Config
	logger logging.Logger

	token       string
	tokenExpiry time.Time
}

// NewClient creates a Reddit client with rate-limit aware retries
func NewClient(cfg Config, logger logging.Logger) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(60 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		SetRetryAfter(func(_ *resty.Client, r *resty.Response) (time.Duration, error) {
			if v := r.Header().Get("Retry-After"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
					return time.Duration(secs) * time.Second, nil
				}
			}
			return 0, nil
		})

	return &Client{http: rc, cfg: cfg, logger: logger}
}

func (c *Client) authenticated() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// ensureToken refreshes the app-only OAuth token when within a minute of
// expiry. Callers without credentials skip OAuth entirely.
func (c *Client) ensureToken(ctx context.Context) error {
	if !c.authenticated() {
		return nil
	}
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return nil
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post(c.cfg.AuthURL)
	if err != nil {
		return fmt.Errorf("reddit token request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("reddit token request: status %d", resp.StatusCode())
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("reddit token request: empty token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug("Reddit OAuth token refreshed")
	return nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if c.token != "" {
		r.SetAuthToken(c.token)
	}
	return r
}

// NewPosts fetches one page of a subreddit's /new listing. after is the
// fullname cursor from the previous page, empty for the first page.
func (c *Client) NewPosts(ctx context.Context, subreddit string, limit int, after string) (*ListingPage, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{"limit": strconv.Itoa(limit), "raw_json": "1"}
	if after != "" {
		params["after"] = after
	}

	var listing thing
	resp, err := c.request(ctx).
		SetQueryParams(params).
		SetResult(&listing).
		Get(fmt.Sprintf("/r/%s/new.json", subreddit))
	if err != nil {
		return nil, fmt.Errorf("reddit listing %s: %w", subreddit, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("reddit listing %s: status %d", subreddit, resp.StatusCode())
	}

	page := &ListingPage{After: listing.Data.After}
	for _, child := range listing.Data.Children {
		if child.Kind != kindPost {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		page.Posts = append(page.Posts, p.toPost(subreddit))
	}
	return page, nil
}

// CommentThread fetches a post's full comment tree, flattened in
// depth-first order.
func (c *Client) CommentThread(ctx context.Context, subreddit, postID string, limit int) ([]ThreadComment, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	var payload []thing
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{"limit": strconv.Itoa(limit), "raw_json": "1"}).
		SetResult(&payload).
		Get(fmt.Sprintf("/r/%s/comments/%s.json", subreddit, postID))
	if err != nil {
		return nil, fmt.Errorf("reddit thread %s: %w", postID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("reddit thread %s: status %d", postID, resp.StatusCode())
	}
	// Payload is [post listing, comment listing].
	if len(payload) < 2 {
		return nil, fmt.Errorf("reddit thread %s: unexpected payload shape", postID)
	}

	var comments []ThreadComment
	if err := flattenComments(payload[1].Data.Children, postID, 0, &comments); err != nil {
		return nil, fmt.Errorf("reddit thread %s: %w", postID, err)
	}
	return comments, nil
}

// flattenComments walks a comment listing depth first, skipping "more"
// stubs and any deleted comments with no body.
func flattenComments(children []child, postID string, depth int, out *[]ThreadComment) error {
	for _, ch := range children {
		if ch.Kind != kindComment {
			continue
		}
		var cd commentData
		if err := json.Unmarshal(ch.Data, &cd); err != nil {
			return fmt.Errorf("decode comment: %w", err)
		}
		// Deleted comments are skipped but still descended into, since
		// their children can be live.
		if cd.ID != "" && cd.Body != "" && cd.Body != "[deleted]" && cd.Body != "[removed]" {
			*out = append(*out, cd.toComment(postID, depth))
		}

		if len(cd.Replies) > 0 && string(cd.Replies) != `""` && string(cd.Replies) != "null" {
			var replies thing
			if err := json.Unmarshal(cd.Replies, &replies); err != nil {
				return fmt.Errorf("decode replies: %w", err)
			}
			if err := flattenComments(replies.Data.Children, postID, depth+1, out); err != nil {
				return err
			}
		}
	}
	return nil
}
