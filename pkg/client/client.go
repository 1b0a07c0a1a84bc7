package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Client is the high-level API client for the resume service. It owns a
// [Gateway] configured with the service's refresh endpoint, so expired
// access tokens are recovered transparently.
type Client struct {
	gw *Gateway
}

// New creates a client for the service at baseURL.
func New(baseURL string) *Client {
	c := &Client{}
	c.gw = NewGateway(baseURL, c.refreshAccessToken)
	return c
}

// Gateway exposes the underlying gateway for callers that need raw access.
func (c *Client) Gateway() *Gateway { return c.gw }

// TokenResponse is the body of the login and refresh endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and stores the returned access token on the
// gateway. The refresh credential arrives as an HTTP-only cookie and is
// retained by the gateway's cookie jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out TokenResponse
	err := c.gw.DoJSON(ctx, http.MethodPost, "/api/v1/auth/login", loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return err
	}
	c.gw.SetToken(out.AccessToken)
	return nil
}

// Logout revokes the session server-side and tears the gateway down.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.gw.DoWithoutRefresh(ctx, http.MethodPost, "/api/v1/auth/logout", nil)
	c.gw.Close()
	return err
}

func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	data, err := c.gw.DoWithoutRefresh(ctx, http.MethodPost, "/api/v1/auth/refresh", nil)
	if err != nil {
		return "", err
	}
	var out TokenResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	return out.AccessToken, nil
}

// Profile fetches the caller's professional profile.
func (c *Client) Profile(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.gw.DoJSON(ctx, http.MethodGet, "/api/v1/profile", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateProfile replaces the caller's profile document.
func (c *Client) UpdateProfile(ctx context.Context, profile map[string]interface{}) error {
	return c.gw.DoJSON(ctx, http.MethodPut, "/api/v1/profile", profile, nil)
}

// GenerateRequest asks the service to generate a tailored resume.
type GenerateRequest struct {
	JobDescription string                 `json:"job_description,omitempty"`
	Overrides      map[string]interface{} `json:"overrides,omitempty"`
	Language       string                 `json:"language,omitempty"`
}

// GenerateResponse is the accepted-generation acknowledgement.
type GenerateResponse struct {
	ResumeID string `json:"resume_id"`
	Status   string `json:"status"`
}

// GenerateResume submits a generation request. The service answers 202
// with the job's resume id; track it with a [StatusPoller].
func (c *Client) GenerateResume(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var out GenerateResponse
	if err := c.gw.DoJSON(ctx, http.MethodPost, "/api/v1/resumes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchStatus implements [StatusFetcher] against the live service.
func (c *Client) FetchStatus(ctx context.Context, resourceID string) ([]byte, error) {
	return c.gw.Do(ctx, http.MethodGet, "/api/v1/resumes/"+resourceID, nil)
}

// NewPoller creates a [StatusPoller] bound to this client.
func (c *Client) NewPoller(cfg PollConfig, opts ...PollerOption) *StatusPoller {
	return NewStatusPoller(c, cfg, opts...)
}

// DownloadPDF fetches the rendered PDF for a completed resume.
func (c *Client) DownloadPDF(ctx context.Context, resumeID string) ([]byte, error) {
	return c.gw.Do(ctx, http.MethodGet, "/api/v1/resumes/"+resumeID+"/download", nil)
}
