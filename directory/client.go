// Package directory implements the account/membership directory client
// against its ReST API.
package directory

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

	"github.com/goliatone/go-errors"

	"github.com/embos/go-stack-auth"
)

const (
	usersPath           = "/api/users"
	projectsPath        = "/api/projects"
	membershipsPath     = "/api/user-projects"
	providerConfigsPath = "/api/workos-configs"
)

// Config holds the directory client configuration.
type Config struct {
	BaseURL string
	// APIKey is sent on every request under the x-api-key header.
	APIKey string

	HTTPClient *http.Client
	Logger     stackauth.Logger
}

// Client talks to the directory API. It implements stackauth.DirectoryAPI.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     stackauth.Logger
}

var _ stackauth.DirectoryAPI = (*Client)(nil)

// New creates a directory client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("directory base URL is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	if cfg.APIKey == "" {
		return nil, errors.New("directory api key is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return &Client{config: cfg, httpClient: client, logger: cfg.Logger}, nil
}

// Users returns the user collection client.
func (c *Client) Users() stackauth.UserDirectory {
	return usersClient{c}
}

// Projects returns the project collection client.
func (c *Client) Projects() stackauth.ProjectDirectory {
	return projectsClient{c}
}

// Memberships returns the membership collection client.
func (c *Client) Memberships() stackauth.MembershipDirectory {
	return membershipsClient{c}
}

// ProviderConfigs returns the provider config collection client.
func (c *Client) ProviderConfigs() stackauth.ProviderConfigDirectory {
	return providerConfigsClient{c}
}

// envelope is the directory response wrapper. A transport-level success with
// success=false is reported as an error; callers never see the flag.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "unable to encode directory request").
				WithCode(errors.CodeInternal)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to build directory request").
			WithCode(errors.CodeInternal)
	}
	req.Header.Set(stackauth.DefaultAPIKeyHeader, c.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("directory %s %s failed", method, path)).
			WithCode(errors.CodeInternal)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to read directory response").
			WithCode(errors.CodeInternal)
	}

	if resp.StatusCode == http.StatusNotFound {
		return errors.New("directory record not found", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound).
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(fmt.Sprintf("directory %s %s returned %d", method, path, resp.StatusCode), errors.CategoryInternal).
			WithCode(errors.CodeInternal).
			WithMetadata(map[string]any{"method": method, "path": path, "status": resp.StatusCode})
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to decode directory response").
			WithCode(errors.CodeInternal)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "directory call was not successful"
		}
		return errors.New(msg, errors.CategoryInternal).
			WithCode(errors.CodeInternal).
			WithMetadata(map[string]any{"method": method, "path": path})
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "unable to decode directory payload").
			WithCode(errors.CodeInternal)
	}
	return nil
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

type usersClient struct{ c *Client }

func (u usersClient) Get(ctx context.Context, id string) (*stackauth.User, error) {
	var out stackauth.User
	if err := u.c.do(ctx, http.MethodGet, usersPath+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u usersClient) GetAll(ctx context.Context, page, limit int, filter stackauth.UserFilter) ([]*stackauth.User, error) {
	q := pageQuery(page, limit)
	if filter.Email != "" {
		q.Set("email", filter.Email)
	}
	if filter.Phone != "" {
		q.Set("phone_number", filter.Phone)
	}

	var out []*stackauth.User
	if err := u.c.do(ctx, http.MethodGet, usersPath, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (u usersClient) Create(ctx context.Context, user *stackauth.User) (*stackauth.User, error) {
	var out stackauth.User
	if err := u.c.do(ctx, http.MethodPost, usersPath, nil, user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u usersClient) Update(ctx context.Context, user *stackauth.User) (*stackauth.User, error) {
	var out stackauth.User
	path := usersPath + "/" + url.PathEscape(user.ID)
	if err := u.c.do(ctx, http.MethodPut, path, nil, user, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u usersClient) Delete(ctx context.Context, id string) error {
	return u.c.do(ctx, http.MethodDelete, usersPath+"/"+url.PathEscape(id), nil, nil, nil)
}

type projectsClient struct{ c *Client }

func (p projectsClient) Get(ctx context.Context, id string) (*stackauth.Project, error) {
	var out stackauth.Project
	if err := p.c.do(ctx, http.MethodGet, projectsPath+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p projectsClient) GetAll(ctx context.Context, page, limit int, filter stackauth.ProjectFilter) ([]*stackauth.Project, error) {
	q := pageQuery(page, limit)
	if filter.Name != "" {
		q.Set("name", filter.Name)
	}

	var out []*stackauth.Project
	if err := p.c.do(ctx, http.MethodGet, projectsPath, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type membershipsClient struct{ c *Client }

func (m membershipsClient) Get(ctx context.Context, id string) (*stackauth.Membership, error) {
	var out stackauth.Membership
	if err := m.c.do(ctx, http.MethodGet, membershipsPath+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m membershipsClient) GetAll(ctx context.Context, page, limit int, filter stackauth.MembershipFilter) ([]*stackauth.Membership, error) {
	q := pageQuery(page, limit)
	if filter.UserID != "" {
		q.Set("user_id", filter.UserID)
	}
	if filter.ProjectID != "" {
		q.Set("project_id", filter.ProjectID)
	}

	var out []*stackauth.Membership
	if err := m.c.do(ctx, http.MethodGet, membershipsPath, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m membershipsClient) Create(ctx context.Context, membership *stackauth.Membership) (*stackauth.Membership, error) {
	var out stackauth.Membership
	if err := m.c.do(ctx, http.MethodPost, membershipsPath, nil, membership, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m membershipsClient) Update(ctx context.Context, membership *stackauth.Membership) (*stackauth.Membership, error) {
	var out stackauth.Membership
	path := membershipsPath + "/" + url.PathEscape(membership.ID)
	if err := m.c.do(ctx, http.MethodPut, path, nil, membership, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m membershipsClient) Delete(ctx context.Context, id string) error {
	return m.c.do(ctx, http.MethodDelete, membershipsPath+"/"+url.PathEscape(id), nil, nil, nil)
}

type providerConfigsClient struct{ c *Client }

func (p providerConfigsClient) Get(ctx context.Context, id string) (*stackauth.ProviderConfig, error) {
	var out stackauth.ProviderConfig
	if err := p.c.do(ctx, http.MethodGet, providerConfigsPath+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
