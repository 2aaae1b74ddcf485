// Package client is a Go client for the loom-sync HTTP API. It speaks
// the gateway's JSON wire format and carries the caller's identity in
// the proxy headers the server trusts.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	syncgw "github.com/loomapp/loom/internal/sync"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Identity names the caller as the authenticating proxy would.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Client is an HTTP client for a loom-sync server.
type Client struct {
	BaseURL  string
	Identity Identity
	DeviceID string
	HTTP     *http.Client
}

// New creates a new client for the given server and identity.
func New(baseURL string, identity Identity, deviceID string) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Identity: identity,
		DeviceID: deviceID,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Workspace is a workspace listing row from the server.
type Workspace struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
	IsActive    bool   `json:"is_active"`
}

// Invite is an invite row from the server. Token is only set on create.
type Invite struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	ExpiresAt   int64  `json:"expires_at"`
	Token       string `json:"token,omitempty"`
}

// Member is a membership row from the server.
type Member struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	CreatedAt   int64  `json:"created_at"`
}

// --- Workspace methods ---

// ListWorkspaces lists the caller's workspaces.
func (c *Client) ListWorkspaces() ([]Workspace, error) {
	var resp []Workspace
	if err := c.do("GET", "/v1/workspaces", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// CreateWorkspace creates a workspace owned by the caller.
func (c *Client) CreateWorkspace(name, description string) (string, error) {
	body := map[string]string{"name": name, "description": description}
	var resp map[string]string
	if err := c.do("POST", "/v1/workspaces", body, &resp); err != nil {
		return "", err
	}
	return resp["id"], nil
}

// DefaultWorkspace returns the caller's landing workspace, creating one
// on first contact.
func (c *Client) DefaultWorkspace() (id, name string, err error) {
	var resp map[string]string
	if err := c.do("GET", "/v1/workspaces/default", nil, &resp); err != nil {
		return "", "", err
	}
	return resp["id"], resp["name"], nil
}

// ActivateWorkspace points the caller's active workspace at workspaceID.
func (c *Client) ActivateWorkspace(workspaceID string) error {
	return c.do("POST", fmt.Sprintf("/v1/workspaces/%s/activate", workspaceID), nil, nil)
}

// --- Member methods ---

// ListMembers lists a workspace's members.
func (c *Client) ListMembers(workspaceID string) ([]Member, error) {
	var resp []Member
	if err := c.do("GET", fmt.Sprintf("/v1/workspaces/%s/members", workspaceID), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// AddMember adds a user to a workspace with the given role.
func (c *Client) AddMember(workspaceID, userID, role string) error {
	body := map[string]string{"user_id": userID, "role": role}
	return c.do("POST", fmt.Sprintf("/v1/workspaces/%s/members", workspaceID), body, nil)
}

// --- Invite methods ---

// CreateInvite invites an email address to a workspace. The returned
// invite carries the one-time plaintext token.
func (c *Client) CreateInvite(workspaceID, email, role string) (*Invite, error) {
	body := map[string]string{"email": email, "role": role}
	var resp Invite
	if err := c.do("POST", fmt.Sprintf("/v1/workspaces/%s/invites", workspaceID), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AcceptInvite accepts an invite addressed to the caller's email.
func (c *Client) AcceptInvite(workspaceID, token string) error {
	body := map[string]string{"token": token}
	return c.do("POST", fmt.Sprintf("/v1/workspaces/%s/invites/accept", workspaceID), body, nil)
}

// --- Sync methods ---

// Push sends a batch of pending ops to the server.
func (c *Client) Push(workspaceID string, ops []syncgw.PendingOp) (*syncgw.PushResult, error) {
	body := map[string]any{"ops": ops}
	var resp syncgw.PushResult
	if err := c.do("POST", fmt.Sprintf("/v1/workspaces/%s/sync/push", workspaceID), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pull fetches changes after cursor, optionally restricted to tables.
func (c *Client) Pull(workspaceID string, cursor int64, limit int, tables []string) (*syncgw.PullResult, error) {
	params := url.Values{}
	params.Set("cursor", strconv.FormatInt(cursor, 10))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if len(tables) > 0 {
		params.Set("tables", strings.Join(tables, ","))
	}

	var resp syncgw.PullResult
	if err := c.do("GET", fmt.Sprintf("/v1/workspaces/%s/sync/pull?%s", workspaceID, params.Encode()), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AckCursor reports how far this device has pulled.
func (c *Client) AckCursor(workspaceID string, version int64) (*syncgw.Cursor, error) {
	body := map[string]any{"device_id": c.DeviceID, "version": version}
	var resp syncgw.Cursor
	if err := c.do("POST", fmt.Sprintf("/v1/workspaces/%s/sync/cursor", workspaceID), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SyncStatus reports the workspace's sync state.
func (c *Client) SyncStatus(workspaceID string) (*syncgw.Status, error) {
	var resp syncgw.Status
	if err := c.do("GET", fmt.Sprintf("/v1/workspaces/%s/sync/status", workspaceID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (c *Client) do(method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Auth-Provider", c.Identity.Provider)
	req.Header.Set("X-Auth-Subject", c.Identity.Subject)
	if c.Identity.Email != "" {
		req.Header.Set("X-Auth-Email", c.Identity.Email)
	}
	if c.Identity.Name != "" {
		req.Header.Set("X-Auth-Name", c.Identity.Name)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error apiError `json:"error"`
		}
		if json.Unmarshal(respBody, &wrapper) == nil && wrapper.Error.Code != "" {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, wrapper.Error.Message)
			case http.StatusForbidden:
				return fmt.Errorf("%w: %s", ErrForbidden, wrapper.Error.Message)
			case http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, wrapper.Error.Message)
			default:
				return &wrapper.Error
			}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
