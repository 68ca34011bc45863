// Package gateway wraps the remote platform API's auth operations. It
// normalizes the backend's payload variants (the principal arrives under
// "admin" or "user" depending on the endpoint) into one Principal shape
// and passes failures through as typed errors. It never retries and
// never interprets status codes beyond 2xx/non-2xx.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mealdesk/mealdesk-console/internal/authz"
	"github.com/mealdesk/mealdesk-console/internal/session"
)

// APIError carries the human-readable message returned by the remote
// API on a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

// Client talks to the remote platform API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a gateway client for the given API base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// envelope is the union of the auth endpoints' success payloads.
type envelope struct {
	Admin   *authz.Principal `json:"admin"`
	User    *authz.Principal `json:"user"`
	Token   string           `json:"token"`
	Message string           `json:"message"`
}

// principal picks whichever field the endpoint populated.
func (e envelope) principal() *authz.Principal {
	if e.Admin != nil {
		return e.Admin
	}
	return e.User
}

// SessionCheck validates the ambient credential with the remote API.
// A missing or locally expired credential short-circuits to
// ErrNoSession without a network round-trip; any non-2xx response is
// likewise treated as "no session", not as a failure.
func (c *Client) SessionCheck(ctx context.Context, credential string) (*authz.Principal, error) {
	if credential == "" || credentialExpired(credential) {
		return nil, session.ErrNoSession
	}
	env, err := c.do(ctx, http.MethodGet, "/auth/session", credential, nil)
	if err != nil {
		return nil, session.ErrNoSession
	}
	p := env.principal()
	if p == nil {
		return nil, session.ErrNoSession
	}
	return p, nil
}

// SignInAdmin authenticates against the outlet-admin endpoint. The
// principal arrives under the "admin" key.
func (c *Client) SignInAdmin(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	return c.signIn(ctx, "/auth/admin/signin", email, password)
}

// SignInSuperadmin authenticates against the superadmin endpoint. The
// principal arrives under the "user" key.
func (c *Client) SignInSuperadmin(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	return c.signIn(ctx, "/auth/superadmin/signin", email, password)
}

// SignInUser authenticates against the plain user endpoint.
func (c *Client) SignInUser(ctx context.Context, email, password string) (*authz.Principal, string, error) {
	return c.signIn(ctx, "/auth/signin", email, password)
}

func (c *Client) signIn(ctx context.Context, path, email, password string) (*authz.Principal, string, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return nil, "", err
	}
	p := env.principal()
	if p == nil {
		return nil, "", &APIError{Status: http.StatusBadGateway, Message: "malformed sign-in response"}
	}
	return p, env.Token, nil
}

// SignUp registers a new admin account and returns the remote message.
func (c *Client) SignUp(ctx context.Context, form session.SignUpForm) (string, error) {
	body := map[string]string{
		"name":           form.Name,
		"email":          form.Email,
		"phone":          form.Phone,
		"password":       form.Password,
		"retypePassword": form.RetypePassword,
	}
	env, err := c.do(ctx, http.MethodPost, "/auth/signup", "", body)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// SignOut invalidates the remote session. Callers ignore the result.
func (c *Client) SignOut(ctx context.Context, credential string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/signout", credential, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, credential string, body any) (envelope, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("gateway: encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return envelope{}, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return envelope{}, fmt.Errorf("gateway: read response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode}
		var remote struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(data, &remote); err == nil {
			if remote.Message != "" {
				apiErr.Message = remote.Message
			} else {
				apiErr.Message = remote.Error
			}
		}
		return envelope{}, apiErr
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return envelope{}, fmt.Errorf("gateway: decode response: %w", err)
		}
	}
	return env, nil
}

// credentialExpired reports whether a JWT-shaped credential carries an
// expiry in the past. Opaque or unparsable credentials are left for the
// remote API to judge.
func credentialExpired(credential string) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(credential, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

var _ session.Gateway = (*Client)(nil)
