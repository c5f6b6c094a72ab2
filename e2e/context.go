// Package e2e drives a running vendorwatch server through its HTTP API.
//
// The suite needs E2E_BASE_URL (for example http://localhost:8080) and
// E2E_ADMIN_TOKEN, a token minted with `vendorwatch issue-token`. The server
// should be started with VENDORWATCH_SEED_DEMO=true.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext carries the HTTP client and the last response between steps.
type TestContext struct {
	BaseURL    string
	AdminToken string

	client       *http.Client
	token        string
	lastStatus   int
	lastBody     []byte
	lastResponse map[string]any
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 2 * time.Minute},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.token = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastResponse = nil
}

func (tc *TestContext) UseAdminToken() { tc.token = tc.AdminToken }
func (tc *TestContext) UseToken(token string) { tc.token = token }
func (tc *TestContext) ClearToken() { tc.token = "" }

func (tc *TestContext) POST(path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	return tc.do(http.MethodPost, path, reader)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastResponse = nil
	if len(tc.lastBody) > 0 {
		var parsed map[string]any
		if err := json.Unmarshal(tc.lastBody, &parsed); err == nil {
			tc.lastResponse = parsed
		}
	}
	return nil
}

func (tc *TestContext) GetLastStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastBody() []byte { return tc.lastBody }

// GetResponseField resolves a dotted path such as "escalation.breaches".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastResponse == nil {
		return nil, fmt.Errorf("no JSON response to read %q from", field)
	}
	var current any = tc.lastResponse
	for _, key := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, key)
		}
		current, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response", field)
		}
	}
	return current, nil
}
