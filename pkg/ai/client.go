// Package ai talks to the external enhancement service. The service is an
// opaque HTTP collaborator: it receives the aggregated profile material
// and answers with a resume document as JSON.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the enhancement service to turn raw profile data into the
// canonical resume document.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Language string
}

func NewClient(baseURL, language string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Timeout: 60 * time.Second},
		Language: language,
	}
}

const enhanceInstructions = "Respond with ONLY a single JSON object that conforms to the resume JSON Schema. " +
	"Do NOT include any explanatory text, backticks, or code fences. " +
	"Tailor the summary, experience bullets and selected projects to the provided job_description. " +
	"Preserve meta.name exactly as given."

// EnhanceResume sends the aggregated payload to the service and decodes
// the resume document from its answer.
func (c *Client) EnhanceResume(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	userCtx := map[string]interface{}{
		"payload":      payload,
		"instructions": enhanceInstructions,
	}
	if c.Language != "" {
		userCtx["language"] = c.Language
	}
	ctxB, err := json.Marshal(userCtx)
	if err != nil {
		return nil, err
	}

	chatReq := map[string]interface{}{
		"agent": "auto",
		"input": "Generate a tailored resume:\n" + string(ctxB),
	}
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, err
	}

	resp, err := c.doPostWithRetry(ctx, "/v1/chat", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ai-service returned status %d", resp.StatusCode)
	}

	var chatResp struct {
		Agent  string `json:"agent"`
		Output string `json:"output"`
	}
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return nil, err
	}

	doc, err := decodeDocument(chatResp.Output)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// doPostWithRetry performs an HTTP POST to the given path with retry and
// exponential backoff. Only transport failures are retried; HTTP error
// statuses are returned to the caller.
func (c *Client) doPostWithRetry(ctx context.Context, path string, body []byte) (*http.Response, error) {
	attempts := 3
	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < attempts-1 {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// decodeDocument parses the model output as JSON. Models occasionally
// wrap the object in prose or code fences, so on a parse failure the
// outermost {...} span is tried before giving up.
func decodeDocument(output string) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(output), &doc); err == nil {
		return doc, nil
	}
	start := strings.IndexByte(output, '{')
	end := strings.LastIndexByte(output, '}')
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(output[start:end+1]), &doc); err == nil {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("ai-service returned non-json content")
}
