package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/runningwild/tripcurve/pkg/agent"
)

// Client queries one or more tripcurve agents, typically one per relay.
type Client struct {
	nodes []string
	http  *http.Client
}

func New(nodes []string) *Client {
	return &Client{
		nodes: nodes,
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NodeResult is one agent's answer to a batch.
type NodeResult struct {
	Node     string
	Response *agent.ClassifyResponse
	Err      error
}

// Classify sends the same batch to every node concurrently. Per-node failures
// are reported in the results; the returned slice follows the node order.
func (c *Client) Classify(ctx context.Context, ms []agent.LabeledMeasurement) []NodeResult {
	var wg sync.WaitGroup
	results := make([]NodeResult, len(c.nodes))

	// Fan out
	for i, node := range c.nodes {
		wg.Add(1)
		go func(idx int, host string) {
			defer wg.Done()
			var resp agent.ClassifyResponse
			err := c.do(ctx, http.MethodPost, host, "/classify", agent.ClassifyRequest{Measurements: ms}, &resp)
			results[idx] = NodeResult{Node: host, Err: err}
			if err == nil {
				results[idx].Response = &resp
			}
		}(i, node)
	}
	wg.Wait()
	return results
}

// Characteristic fetches the breakpoints and cutoff served by node.
func (c *Client) Characteristic(ctx context.Context, node string) (*agent.CharacteristicResponse, error) {
	var resp agent.CharacteristicResponse
	if err := c.do(ctx, http.MethodGet, node, "/characteristic", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, host, path string, body, out any) error {
	url := host
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	url = strings.TrimSuffix(url, "/") + path

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("agent %s error (%s): %s", host, resp.Status, string(bytes.TrimSpace(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
