package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Client talks to a carechain node's HTTP API.
type Client struct {
	BaseURL string
	APIKey  string
	Token   string // JWT bearer for history queries
	http    *http.Client
}

// NewClient builds a client from flags/environment. An empty baseURL
// falls back to CARECHAIN_NODE_URL, then localhost.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("CARECHAIN_NODE_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  os.Getenv("CARECHAIN_API_KEY"),
		Token:   os.Getenv("CARECHAIN_TOKEN"),
		http:    &http.Client{},
	}
}

func (c *Client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Detail)
		}
		return fmt.Errorf("node returned %s: %s", resp.Status, string(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Status is the subset of /status the CLI renders.
type Status struct {
	Status      string `json:"status"`
	BlockHeight int    `json:"blockHeight"`
	Delegates   int    `json:"delegates"`
	Version     string `json:"version"`
	LastBlock   string `json:"lastBlock"`
}

func (s Status) ToJSON() string {
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

// GetStatus fetches node status.
func (c *Client) GetStatus() (Status, error) {
	var st Status
	err := c.do(http.MethodGet, "/status", nil, &st)
	return st, err
}

// GetHealth fetches the liveness probe.
func (c *Client) GetHealth() (map[string]string, error) {
	var out map[string]string
	err := c.do(http.MethodGet, "/healthz", nil, &out)
	return out, err
}

// SubmitTx posts a transaction submission to the pending pool.
func (c *Client) SubmitTx(submission any) (map[string]any, error) {
	var out map[string]any
	err := c.do(http.MethodPost, "/api/tx", submission, &out)
	return out, err
}

// GetMempool lists pending transactions.
func (c *Client) GetMempool() ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(http.MethodGet, "/api/mempool", nil, &out)
	return out, err
}

// ProduceBlock asks the node to assemble a block as the named producer.
func (c *Client) ProduceBlock(producerID string) (map[string]any, error) {
	var out map[string]any
	err := c.do(http.MethodPost, "/api/blocks", map[string]string{"producerId": producerID}, &out)
	return out, err
}

// GetHistory fetches a patient's record history.
func (c *Client) GetHistory(patientID string) ([]map[string]any, error) {
	var out []map[string]any
	err := c.do(http.MethodGet, "/api/history/"+patientID, nil, &out)
	return out, err
}

// Delegate mirrors the node's roster entry.
type Delegate struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// ListDelegates fetches the roster in schedule order.
func (c *Client) ListDelegates() ([]Delegate, error) {
	var out []Delegate
	err := c.do(http.MethodGet, "/api/delegates", nil, &out)
	return out, err
}

// RegisterDelegate adds a delegate (admin API key required).
func (c *Client) RegisterDelegate(userID, role string) ([]Delegate, error) {
	var out []Delegate
	err := c.do(http.MethodPost, "/api/delegates", map[string]string{"userId": userID, "role": role}, &out)
	return out, err
}

// DeactivateDelegate marks a delegate inactive (admin API key required).
func (c *Client) DeactivateDelegate(userID string) ([]Delegate, error) {
	var out []Delegate
	err := c.do(http.MethodDelete, "/api/delegates/"+userID, nil, &out)
	return out, err
}

// ValidateChain asks the node to re-validate its chain.
func (c *Client) ValidateChain() (map[string]any, error) {
	var out map[string]any
	err := c.do(http.MethodGet, "/api/chain/validate", nil, &out)
	return out, err
}
