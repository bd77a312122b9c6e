package projectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"airdrop_multisend/internal/app/port"
	"airdrop_multisend/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	maxRedirects      = 5
	maxReasonLength   = 200
	actionRead        = "read"
	actionUpdateDaily = "updateDaily"
	actionDelete      = "delete"
)

// ErrNotConfigured is returned by every call when no script URL is set.
var ErrNotConfigured = errors.New("project store URL is not configured")

// Client talks to the tracker spreadsheet through its web app script. Reads are
// GET ?action=read; writes are text/plain JSON bodies with an action discriminator.
type Client struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  port.Logger
}

var _ port.ProjectStore = (*Client)(nil)

// NewClient creates a project store client. An empty baseURL yields a client that
// fails every call with ErrNotConfigured.
func NewClient(baseURL string, timeout time.Duration, logger port.Logger) *Client {
	return &Client{
		client:  &fasthttp.Client{Name: "airdrop-multisend"},
		baseURL: strings.TrimSpace(baseURL),
		timeout: timeout,
		logger:  logger.With("component", "projectstore"),
	}
}

// wireProject is a sheet row. Tags arrive either as a JSON-encoded string or as an array.
type wireProject struct {
	Name     string              `json:"name"`
	Twitter  string              `json:"twitter"`
	Discord  string              `json:"discord"`
	Telegram string              `json:"telegram"`
	Wallet   string              `json:"wallet"`
	Email    string              `json:"email"`
	Github   string              `json:"github"`
	Website  string              `json:"website"`
	Notes    string              `json:"notes"`
	Tags     jsoniter.RawMessage `json:"tags"`
	Daily    string              `json:"daily"`
}

type addPayload struct {
	Name     string `json:"name"`
	Twitter  string `json:"twitter"`
	Discord  string `json:"discord"`
	Telegram string `json:"telegram"`
	Wallet   string `json:"wallet"`
	Email    string `json:"email"`
	Github   string `json:"github"`
	Website  string `json:"website"`
	Notes    string `json:"notes"`
	Tags     string `json:"tags"` // JSON-encoded array
}

type actionPayload struct {
	Action string `json:"action"`
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
}

// List reads all projects from the sheet.
func (c *Client) List(ctx context.Context) ([]entity.Project, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	status, body, err := c.do(ctx, fasthttp.MethodGet, c.readURL(), nil)
	if err != nil {
		return nil, err
	}
	if status != fasthttp.StatusOK {
		return nil, fmt.Errorf("project store read failed with status %d: %s", status, truncate(string(body)))
	}

	var rows []wireProject
	if err := json.Unmarshal(body, &rows); err != nil {
		c.logger.Error("Failed to decode project list", "error", err, "body", truncate(string(body)))
		return nil, fmt.Errorf("decode project list: %w", err)
	}

	projects := make([]entity.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, entity.Project{
			Name:     row.Name,
			Twitter:  row.Twitter,
			Discord:  row.Discord,
			Telegram: row.Telegram,
			Wallet:   row.Wallet,
			Email:    row.Email,
			Github:   row.Github,
			Website:  row.Website,
			Notes:    row.Notes,
			Tags:     c.decodeTags(row.Name, row.Tags),
			Daily:    row.Daily,
		})
	}
	c.logger.Debug("Projects loaded", "count", len(projects))
	return projects, nil
}

// Add appends one project row.
func (c *Client) Add(ctx context.Context, project entity.Project) (entity.StoreResult, error) {
	if strings.TrimSpace(project.Name) == "" {
		return entity.StoreResult{OK: false, Reason: "project name is required"}, nil
	}
	tags := project.Tags
	if tags == nil {
		tags = []string{}
	}
	encodedTags, err := json.MarshalToString(tags)
	if err != nil {
		return entity.StoreResult{}, err
	}
	return c.post(ctx, addPayload{
		Name:     project.Name,
		Twitter:  project.Twitter,
		Discord:  project.Discord,
		Telegram: project.Telegram,
		Wallet:   project.Wallet,
		Email:    project.Email,
		Github:   project.Github,
		Website:  project.Website,
		Notes:    project.Notes,
		Tags:     encodedTags,
	})
}

// UpdateDaily sets the daily check column of a project to CHECKED or UNCHECKED.
func (c *Client) UpdateDaily(ctx context.Context, name, value string) (entity.StoreResult, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value != entity.DailyChecked && value != entity.DailyUnchecked {
		return entity.StoreResult{OK: false, Reason: fmt.Sprintf("daily value must be %s or %s", entity.DailyChecked, entity.DailyUnchecked)}, nil
	}
	return c.post(ctx, actionPayload{Action: actionUpdateDaily, Name: name, Value: value})
}

// Delete removes a project by name.
func (c *Client) Delete(ctx context.Context, name string) (entity.StoreResult, error) {
	return c.post(ctx, actionPayload{Action: actionDelete, Name: name})
}

func (c *Client) readURL() string {
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + "action=" + actionRead
}

func (c *Client) post(ctx context.Context, payload any) (entity.StoreResult, error) {
	if c.baseURL == "" {
		return entity.StoreResult{}, ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return entity.StoreResult{}, fmt.Errorf("encode request: %w", err)
	}
	status, respBody, err := c.do(ctx, fasthttp.MethodPost, c.baseURL, body)
	if err != nil {
		return entity.StoreResult{}, err
	}
	result := decodeResult(status, respBody)
	if !result.OK {
		c.logger.Warn("Project store rejected request", "status", status, "reason", result.Reason)
	}
	return result, nil
}

// do executes one request and follows redirects with GET, the way the script
// web app answers writes.
func (c *Client) do(ctx context.Context, method, uri string, body []byte) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("text/plain;charset=utf-8")
		req.SetBody(body)
	}

	for hop := 0; ; hop++ {
		c.logger.Debug("Project store request", "method", string(req.Header.Method()), "url", req.URI().String())

		var err error
		if deadline, ok := ctx.Deadline(); ok {
			err = c.client.DoDeadline(req, resp, deadline)
		} else {
			err = c.client.DoTimeout(req, resp, c.timeout)
		}
		if err != nil {
			c.logger.Error("Failed to execute project store request", "url", uri, "error", err)
			return 0, nil, fmt.Errorf("failed to execute request to project store: %w", err)
		}

		status := resp.StatusCode()
		location := resp.Header.Peek(fasthttp.HeaderLocation)
		if !fasthttp.StatusCodeIsRedirect(status) || len(location) == 0 {
			return status, append([]byte(nil), resp.Body()...), nil
		}
		if hop >= maxRedirects {
			return 0, nil, fmt.Errorf("project store: too many redirects")
		}

		next := req.URI()
		next.UpdateBytes(location)
		nextURI := next.String()
		req.Reset()
		req.SetRequestURI(nextURI)
		req.Header.SetMethod(fasthttp.MethodGet)
		resp.Reset()
	}
}

func (c *Client) decodeTags(project string, raw jsoniter.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return []string{}
	}
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return []string{}
		}
		if err := json.UnmarshalFromString(s, &value); err != nil {
			c.logger.Debug("Unparsable tags", "project", project, "tags", s)
			return []string{}
		}
	}

	switch v := value.(type) {
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			tags = append(tags, fmt.Sprint(item))
		}
		return tags
	case nil:
		return []string{}
	default:
		return []string{fmt.Sprint(v)}
	}
}

// decodeResult maps a script response to a StoreResult. JSON bodies may carry
// {"ok": bool} or {"status"|"result": "..."}; plain text bodies must be exactly one of
// the success words.
func decodeResult(status int, body []byte) entity.StoreResult {
	text := strings.TrimSpace(string(body))
	if status < 200 || status > 299 {
		return entity.StoreResult{OK: false, Reason: fmt.Sprintf("status %d: %s", status, truncate(text))}
	}

	var obj map[string]any
	if err := json.UnmarshalFromString(text, &obj); err == nil && obj != nil {
		reason := firstString(obj, "reason", "error", "message")
		if ok, found := obj["ok"].(bool); found {
			return entity.StoreResult{OK: ok, Reason: reason}
		}
		if word := firstString(obj, "status", "result"); word != "" {
			if isSuccessWord(word) {
				return entity.StoreResult{OK: true, Reason: reason}
			}
			if reason == "" {
				reason = word
			}
			return entity.StoreResult{OK: false, Reason: reason}
		}
		if reason == "" {
			reason = "unrecognized response"
		}
		return entity.StoreResult{OK: false, Reason: reason}
	}

	if isSuccessWord(text) {
		return entity.StoreResult{OK: true}
	}
	if text == "" {
		text = "empty response"
	}
	return entity.StoreResult{OK: false, Reason: truncate(text)}
}

func isSuccessWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ok", "success", "deleted":
		return true
	}
	return false
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxReasonLength {
		return s
	}
	return s[:maxReasonLength] + "..."
}
