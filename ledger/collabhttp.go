package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coopfoundry/divvy/utils/pkg/retry"
)

// CollabClient talks to the external collaborator services (oracle,
// membership registry, contribution tracker, settlement) over HTTP JSON. It
// implements all four collaborator interfaces; deployments pointing the
// collaborators at different services can construct one client per base URL.
//
// Reads are retried with backoff since they are idempotent. Payments are
// never retried: a failed transfer is a typed, all-or-nothing outcome for
// the operation that triggered it.
type CollabClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCollabClient creates a collaborator client for the given base URL.
func NewCollabClient(baseURL string) *CollabClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
	}
	return &CollabClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Minute,
		},
	}
}

var (
	_ Oracle              = (*CollabClient)(nil)
	_ Membership          = (*CollabClient)(nil)
	_ ContributionTracker = (*CollabClient)(nil)
	_ ValueTransfer       = (*CollabClient)(nil)
)

// Revenue implements Oracle via GET /ventures/{id}/revenue.
func (c *CollabClient) Revenue(ctx context.Context, ventureID string) (int64, error) {
	var out struct {
		Revenue int64 `json:"revenue"`
	}
	path := fmt.Sprintf("/ventures/%s/revenue", ventureID)
	if err := c.getJSON(ctx, path, "revenue", &out); err != nil {
		return 0, err
	}
	return out.Revenue, nil
}

// ActiveMembers implements Membership via GET /ventures/{id}/members.
func (c *CollabClient) ActiveMembers(ctx context.Context, ventureID string) ([]string, error) {
	var out struct {
		Members []string `json:"members"`
	}
	path := fmt.Sprintf("/ventures/%s/members", ventureID)
	if err := c.getJSON(ctx, path, "members", &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// TotalWeight implements ContributionTracker via GET /ventures/{id}/weight.
func (c *CollabClient) TotalWeight(ctx context.Context, ventureID string) (int64, error) {
	var out struct {
		Weight int64 `json:"weight"`
	}
	path := fmt.Sprintf("/ventures/%s/weight", ventureID)
	if err := c.getJSON(ctx, path, "total_weight", &out); err != nil {
		return 0, err
	}
	return out.Weight, nil
}

// MemberWeight implements ContributionTracker via
// GET /ventures/{id}/weight/{member}.
func (c *CollabClient) MemberWeight(ctx context.Context, ventureID, memberID string) (int64, error) {
	var out struct {
		Weight int64 `json:"weight"`
	}
	path := fmt.Sprintf("/ventures/%s/weight/%s", ventureID, memberID)
	if err := c.getJSON(ctx, path, "member_weight", &out); err != nil {
		return 0, err
	}
	return out.Weight, nil
}

// Pay implements ValueTransfer via POST /payments.
func (c *CollabClient) Pay(ctx context.Context, amount int64, toMember string) error {
	start := time.Now()
	err := c.pay(ctx, amount, toMember)
	recordCollabRequest("payments", time.Since(start).Seconds(), err)
	return err
}

func (c *CollabClient) pay(ctx context.Context, amount int64, toMember string) error {
	body, err := json.Marshal(map[string]any{
		"member": toMember,
		"amount": amount,
	})
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, msg: fmt.Sprintf("payment rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}
	}
	return nil
}

func (c *CollabClient) getJSON(ctx context.Context, path, endpoint string, out any) error {
	start := time.Now()
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return c.doGetJSON(ctx, path, out)
	})
	recordCollabRequest(endpoint, time.Since(start).Seconds(), err)
	return err
}

func (c *CollabClient) doGetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, msg: fmt.Sprintf("request %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// statusError carries the HTTP status so retry logic can tell transient
// server errors from permanent rejections.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string   { return e.msg }
func (e *statusError) StatusCode() int { return e.code }
