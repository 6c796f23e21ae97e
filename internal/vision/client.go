package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vigil-ai/vigil-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Fixed result strings for transport, parse and configuration failures.
// The client is non-throwing for these: callers always get a usable
// description string and the analysis record is still created.
const (
	MsgNotConfigured = "LLM service API Key or URL is not configured."
	MsgConnectFailed = "Error connecting to the analysis service."
	MsgParseFailed   = "Could not parse the response from the analysis service."
)

const basePrompt = "You are an AI assistant for environmental monitoring. Analyze the two provided images, " +
	"taken seconds apart. Identify significant, real-world changes. Focus on: objects that have " +
	"appeared, disappeared, or moved; the state of devices (e.g., a light on/off); or the presence of " +
	"people/animals. Please IGNORE minor changes in lighting, shadows, or camera noise. Provide a " +
	"concise summary of tangible differences."

const maxAttempts = 3

// Client calls the remote vision-capable LLM endpoint.
type Client struct {
	APIKey     string
	APIURL     string
	HTTPClient *http.Client

	// BackoffBase is the first retry delay; each retry doubles it.
	// Overridable so tests don't sleep for real.
	BackoffBase time.Duration
}

// NewClient builds a client with the service timeout applied to the
// underlying HTTP client.
func NewClient(apiKey, apiURL string, timeout time.Duration) *Client {
	return &Client{
		APIKey:      apiKey,
		APIURL:      apiURL,
		HTTPClient:  &http.Client{Timeout: timeout},
		BackoffBase: time.Second,
	}
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type describeRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
}

type describeResponse struct {
	Output []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Describe submits both base64-encoded images with the composed prompt and
// returns the generated change description. Transport and parse failures
// degrade to fixed placeholder strings instead of errors.
func (c *Client) Describe(ctx context.Context, image1B64, image2B64, model, promptContext string) string {
	if c.APIKey == "" || c.APIURL == "" {
		return MsgNotConfigured
	}

	finalPrompt := basePrompt
	if promptContext != "" {
		finalPrompt = fmt.Sprintf("%s Specific focus for this analysis: %s", basePrompt, promptContext)
	}

	payload := describeRequest{
		Model: model,
		Input: []inputMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "input_text", Text: finalPrompt},
					{Type: "input_image", ImageURL: "data:image/jpeg;base64," + image1B64},
					{Type: "input_image", ImageURL: "data:image/jpeg;base64," + image2B64},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		customLog.Warnf("Vision: failed to marshal describe payload: %v", err)
		return MsgConnectFailed
	}

	raw, err := c.postWithRetry(ctx, body)
	if err != nil {
		customLog.Warnf("Vision: error calling LLM service: %v", err)
		return MsgConnectFailed
	}

	var parsed describeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		customLog.Warnf("Vision: error parsing LLM response structure: %v", err)
		return MsgParseFailed
	}
	if len(parsed.Output) == 0 || len(parsed.Output[0].Content) == 0 || parsed.Output[0].Content[0].Text == "" {
		customLog.Warnf("Vision: LLM response missing output text. Response was: %s", string(raw))
		return MsgParseFailed
	}

	return parsed.Output[0].Content[0].Text
}

// postWithRetry issues the request up to maxAttempts times, backing off
// exponentially. Only 429 and 5xx responses or transport errors are retried;
// other client errors fail immediately.
func (c *Client) postWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.BackoffBase << (attempt - 2)
			customLog.Printf("Vision: retrying LLM call in %v (attempt %d/%d)", delay, attempt, maxAttempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, retryable, err := c.post(ctx, body)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("llm call failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (raw []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		// Connection failures are transient as far as we can tell
		return nil, true, err
	}
	defer res.Body.Close()

	raw, err = io.ReadAll(res.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return raw, false, nil
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return nil, true, fmt.Errorf("llm service returned status %d", res.StatusCode)
	default:
		return nil, false, fmt.Errorf("llm service returned status %d", res.StatusCode)
	}
}
