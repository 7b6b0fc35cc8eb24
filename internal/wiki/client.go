package wiki

import (
	"context"
	"crypto/md5" //nolint:gosec // MediaWiki's edit API verifies text with MD5
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/packagebot/internal/metrics"
	"github.com/nao1215/packagebot/internal/tracing"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 8 << 20

// maxLoginAttempts is the first login plus the single NeedToken resubmission.
const maxLoginAttempts = 2

// Login result codes the client acts on.
const (
	loginSuccess   = "Success"
	loginNeedToken = "NeedToken"
)

// editSuccess is the edit result for a saved page.
const editSuccess = "Success"

// State is the lifecycle state of a wiki session.
type State int

const (
	// StateUnauthenticated is the state of a new client.
	StateUnauthenticated State = iota

	// StateAuthenticated means Login succeeded and pages may be created.
	StateAuthenticated

	// StateFailed means the last Login attempt failed.
	StateFailed

	// StateLoggedOut is terminal.
	StateLoggedOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	case StateLoggedOut:
		return "logged out"
	default:
		return "unknown"
	}
}

// PageEditContext is what Query learned about one title. The edit token and
// start timestamp are single use and must reach Create unchanged.
type PageEditContext struct {
	Title          string
	EditToken      string
	StartTimestamp string
	Exists         bool
}

// Client handles communication with the MediaWiki API
type Client struct {
	apiURL     *url.URL
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	state      State
	user       string
	loginToken string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for request tracing and session events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client built from Config. A cookie jar is
// added when the given client has none.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a client for the wiki at cfg.Endpoint.
// No network traffic happens until Login.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	apiURL, err := cfg.APIURL()
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiURL:    apiURL,
		userAgent: cfg.UserAgent,
		state:     StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		if c.httpClient, err = newHTTPClient(cfg); err != nil {
			return nil, err
		}
	} else if c.httpClient.Jar == nil {
		jar, err := newCookieJar()
		if err != nil {
			return nil, err
		}
		c.httpClient.Jar = jar
	}

	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// State returns the current session state.
func (c *Client) State() State {
	return c.state
}

// APIURL returns the resolved api.php URL.
func (c *Client) APIURL() string {
	return c.apiURL.String()
}

type loginResponse struct {
	Login struct {
		Result   string `json:"result"`
		Token    string `json:"token"`
		UserName string `json:"lgusername"`
		Reason   string `json:"reason"`
	} `json:"login"`
}

// Login authenticates the session. If the server answers NeedToken, the
// returned token is captured and the credentials are sent once more with it.
// Any other non-Success result, or NeedToken on the second attempt, is a
// *LoginFailure carrying the last result code.
func (c *Client) Login(ctx context.Context, user, password string) error {
	switch c.state {
	case StateAuthenticated:
		return nil
	case StateLoggedOut:
		return ErrLoggedOut
	}

	c.loginToken = ""
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		params := url.Values{}
		params.Set("lgname", user)
		params.Set("lgpassword", password)
		if c.loginToken != "" {
			params.Set("lgtoken", c.loginToken)
		}

		var resp loginResponse
		if err := c.call(ctx, "login", params, &resp); err != nil {
			c.state = StateFailed
			return fmt.Errorf("login: %w", err)
		}

		result := resp.Login.Result
		metrics.RecordLoginAttempt(result)

		switch {
		case result == loginSuccess:
			c.state = StateAuthenticated
			c.user = user
			c.logger.Info("logged in", "user", user, "attempts", attempt)
			return nil
		case result == loginNeedToken && attempt < maxLoginAttempts:
			c.loginToken = resp.Login.Token
			c.logger.Debug("login needs token, resubmitting", "user", user)
		default:
			c.state = StateFailed
			c.logger.Warn("login failed", "user", user, "result", result, "reason", resp.Login.Reason)
			return &LoginFailure{Code: result, Attempts: attempt}
		}
	}
	// The loop always returns on its final attempt.
	c.state = StateFailed
	return &LoginFailure{Code: loginNeedToken, Attempts: maxLoginAttempts}
}

type queryResponse struct {
	Query struct {
		Pages map[string]queryPage `json:"pages"`
	} `json:"query"`
}

type queryPage struct {
	Title          string           `json:"title"`
	EditToken      string           `json:"edittoken"`
	StartTimestamp string           `json:"starttimestamp"`
	Missing        *json.RawMessage `json:"missing"`
	Invalid        *json.RawMessage `json:"invalid"`
	InvalidReason  string           `json:"invalidreason"`
}

// Query asks whether title exists and fetches the edit token and start
// timestamp for creating it.
func (c *Client) Query(ctx context.Context, title string) (*PageEditContext, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("prop", "info|revisions")
	params.Set("intoken", "edit")
	params.Set("titles", title)

	var resp queryResponse
	if err := c.call(ctx, "query", params, &resp); err != nil {
		return nil, fmt.Errorf("query %q: %w", title, err)
	}

	if len(resp.Query.Pages) != 1 {
		return nil, fmt.Errorf("query %q: %w: %d pages in response", title, ErrUnexpectedResponse, len(resp.Query.Pages))
	}
	var page queryPage
	for _, p := range resp.Query.Pages {
		page = p
	}

	if page.Invalid != nil {
		return nil, &APIError{Code: "invalidtitle", Info: page.InvalidReason}
	}

	ec := &PageEditContext{
		Title:          title,
		EditToken:      page.EditToken,
		StartTimestamp: page.StartTimestamp,
		Exists:         page.Missing == nil,
	}
	if !ec.Exists && ec.EditToken == "" {
		return nil, fmt.Errorf("query %q: %w: no edit token", title, ErrUnexpectedResponse)
	}

	c.logger.Debug("queried page", "title", title, "exists", ec.Exists)
	return ec, nil
}

type editResponse struct {
	Edit struct {
		Result   string `json:"result"`
		PageID   int64  `json:"pageid"`
		Title    string `json:"title"`
		NewRevID int64  `json:"newrevid"`
	} `json:"edit"`
}

// Create creates title with content using the token and timestamp from ec.
// The edit is create-only, so the server refuses it if the page appeared
// since the query; that refusal is returned as *PageConflict.
func (c *Client) Create(ctx context.Context, title, content string, ec *PageEditContext, summary string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if ec == nil || ec.Title != title {
		return ErrEditContextMismatch
	}
	if ec.Exists {
		return ErrPageExists
	}

	params := url.Values{}
	params.Set("title", title)
	params.Set("text", content)
	params.Set("token", ec.EditToken)
	params.Set("summary", summary)
	params.Set("notminor", "true")
	params.Set("bot", "true")
	params.Set("starttimestamp", ec.StartTimestamp)
	params.Set("createonly", "true")
	params.Set("recreate", "true")
	params.Set("md5", ContentMD5(content))

	var resp editResponse
	if err := c.call(ctx, "edit", params, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && conflictCodes[apiErr.Code] {
			return &PageConflict{Title: title, Code: apiErr.Code}
		}
		return fmt.Errorf("create %q: %w", title, err)
	}

	if resp.Edit.Result != editSuccess {
		return fmt.Errorf("create %q: %w", title, &APIError{Code: resp.Edit.Result, Info: "edit was not saved"})
	}

	c.logger.Info("created page", "title", title, "pageid", resp.Edit.PageID, "revid", resp.Edit.NewRevID)
	return nil
}

// Logout ends the session. It is best effort: the session is LoggedOut
// afterwards whatever the server said, and the returned error is only
// informational.
func (c *Client) Logout(ctx context.Context) error {
	if c.state == StateLoggedOut {
		return nil
	}
	wasAuthenticated := c.state == StateAuthenticated
	c.state = StateLoggedOut
	c.loginToken = ""

	if !wasAuthenticated {
		return nil
	}
	if err := c.call(ctx, "logout", url.Values{}, nil); err != nil {
		c.logger.Warn("logout failed", "user", c.user, "error", err)
		return fmt.Errorf("logout: %w", err)
	}
	c.logger.Debug("logged out", "user", c.user)
	return nil
}

func (c *Client) requireSession() error {
	switch c.state {
	case StateAuthenticated:
		return nil
	case StateLoggedOut:
		return ErrLoggedOut
	default:
		return ErrNotAuthenticated
	}
}

// call performs one API round trip and decodes the response into out.
func (c *Client) call(ctx context.Context, action string, params url.Values, out any) error {
	ctx, span := tracing.StartSpan(ctx, "wiki."+action)
	defer span.End()
	tracing.AddWikiAttributes(span, action, params.Get("title")+params.Get("titles"))

	start := time.Now()
	err := c.roundTrip(ctx, action, params, out)
	metrics.RecordWikiRequest(action, time.Since(start), err == nil)
	tracing.RecordError(span, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, action string, params url.Values, out any) error {
	params.Set("action", action)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL.String(), strings.NewReader(params.Encode()))
	if err != nil {
		return &NetworkError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("wiki request", "action", action, "url", c.apiURL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &NetworkError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &NetworkError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &NetworkError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	c.logger.Debug("wiki response", "action", action, "bytes", len(body))

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &NetworkError{Action: action, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

// ContentMD5 returns the hex MD5 digest of the exact bytes sent as page text.
func ContentMD5(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec // required by the edit API
	return hex.EncodeToString(sum[:])
}
