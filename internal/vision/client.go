// Package vision decides whether a submitted photo actually shows cattle by
// asking an external label-detection service.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/observability"
)

// cowLabels is the vocabulary of bovine-related terms. A label counts as a
// match when its lowercased text contains any of these as a substring.
var cowLabels = []string{
	"cattle",
	"cow",
	"bovine",
	"livestock",
	"dairy cow",
	"bull",
	"calf",
	"ox",
	"dairy cattle",
	"herd",
	"water buffalo",
	"steer",
	"heifer",
}

// ConfidenceThreshold is the minimum score a matching label needs.
const ConfidenceThreshold = 0.7

// maxLabels is how many labels are requested per image.
const maxLabels = 20

// dataURLPrefix strips a leading data-URL header from base64 payloads.
var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// StripDataURL removes a data-URL prefix from a base64 image payload, if present.
func StripDataURL(imageBase64 string) string {
	return dataURLPrefix.ReplaceAllString(imageBase64, "")
}

// Result is the interpreted classification outcome.
type Result struct {
	IsCow        bool    `json:"isCow"`
	Confidence   float64 `json:"confidence"`
	MatchedLabel string  `json:"matchedLabel,omitempty"`
}

// Classifier decides whether an image shows a cow.
type Classifier interface {
	Classify(ctx context.Context, imageBase64 string) (Result, error)
}

// Client calls the Google Cloud Vision REST API for label detection.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
}

// NewClient creates a vision client. An empty apiKey puts the client in
// bypass mode: classification is skipped and every image is accepted, so
// deployments without Vision credentials still take reports.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger, metrics observability.MetricsRegistry) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type annotateResponse struct {
	Responses []struct {
		LabelAnnotations []struct {
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		} `json:"labelAnnotations"`
	} `json:"responses"`
}

// Classify runs label detection on a base64 image and interprets the labels
// against the bovine vocabulary. The first label that both matches a term
// and meets the confidence threshold wins. Service errors are returned to
// the caller so infrastructure failure is never mistaken for "not a cow".
func (c *Client) Classify(ctx context.Context, imageBase64 string) (Result, error) {
	if c.apiKey == "" {
		c.logger.Warn("vision api key not set, skipping cow detection")
		c.metrics.IncrementClassifierRequests("skipped")
		return Result{IsCow: true, Confidence: 1, MatchedLabel: "skipped"}, nil
	}

	start := time.Now()
	resp, err := c.annotate(ctx, StripDataURL(imageBase64))
	c.metrics.RecordClassifierLatency(time.Since(start))
	if err != nil {
		c.metrics.IncrementClassifierRequests("error")
		return Result{}, err
	}

	if len(resp.Responses) > 0 {
		for _, label := range resp.Responses[0].LabelAnnotations {
			desc := strings.ToLower(label.Description)
			if label.Score < ConfidenceThreshold {
				continue
			}
			for _, term := range cowLabels {
				if strings.Contains(desc, term) {
					c.metrics.IncrementClassifierRequests("match")
					return Result{
						IsCow:        true,
						Confidence:   label.Score,
						MatchedLabel: label.Description,
					}, nil
				}
			}
		}
	}

	c.metrics.IncrementClassifierRequests("no_match")
	return Result{IsCow: false, Confidence: 0, MatchedLabel: ""}, nil
}

// annotate makes the HTTP call to the label-detection endpoint.
func (c *Client) annotate(ctx context.Context, content string) (*annotateResponse, error) {
	req := annotateRequest{
		Requests: []annotateEntry{{
			Image:    annotateImage{Content: content},
			Features: []annotateFeature{{Type: "LABEL_DETECTION", MaxResults: maxLabels}},
		}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal annotate request: %w", err)
	}

	url := c.endpoint + "?key=" + c.apiKey
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create annotate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("vision api request: %w", err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read vision response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		c.logger.Error("vision api error",
			zap.Int("status", httpResp.StatusCode),
			zap.ByteString("body", respBody))
		return nil, fmt.Errorf("vision api returned %d: %s", httpResp.StatusCode, respBody)
	}

	var resp annotateResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse vision response: %w", err)
	}
	return &resp, nil
}
