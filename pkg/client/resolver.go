package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/helmcode/riskctl/pkg/model"
)

// Resolver posts to an ordered list of candidate endpoints until one
// accepts the request or one fails with a 5xx.
type Resolver struct {
	endpoints []string
	baseURL   string
	client    *http.Client
}

// Response is a successful submission plus the failures that preceded it.
type Response struct {
	URL      string
	Status   int
	Body     []byte
	Attempts []Attempt
}

func NewResolver(endpoints []string, baseURL string, timeout time.Duration) *Resolver {
	return NewResolverWithClient(endpoints, baseURL, &http.Client{Timeout: timeout})
}

// NewResolverWithClient uses a copy of httpClient that never follows
// redirects, so a 3xx is recorded as a failed attempt like any other
// non-2xx answer.
func NewResolverWithClient(endpoints []string, baseURL string, httpClient *http.Client) *Resolver {
	hc := *httpClient
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Resolver{
		endpoints: append([]string(nil), endpoints...),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    &hc,
	}
}

func (r *Resolver) Endpoints() []string {
	return append([]string(nil), r.endpoints...)
}

// SubmitPrediction sends req through the fallback chain and decodes the result.
func (r *Resolver) SubmitPrediction(ctx context.Context, req model.PredictionRequest) (*model.PredictionResult, *Response, error) {
	resp, err := r.Submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	var result model.PredictionResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, resp, fmt.Errorf("decode prediction from %s: %w", resp.URL, err)
	}
	return &result, resp, nil
}

// Submit marshals payload once and POSTs it to each endpoint in order.
func (r *Resolver) Submit(ctx context.Context, payload interface{}) (*Response, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var attempts []Attempt
	for _, endpoint := range r.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, ok := r.resolve(endpoint)
		if !ok {
			attempts = append(attempts, Attempt{URL: endpoint, Message: "relative endpoint without base URL"})
			continue
		}

		status, body, err := r.post(ctx, target, jsonBody)
		logger := log.WithField("url", target)
		switch {
		case err != nil:
			logger.WithError(err).Warn("predict attempt failed")
			attempts = append(attempts, Attempt{URL: target, Message: err.Error()})

		case status >= 200 && status < 300:
			logger.WithField("status", status).Debug("predict accepted")
			return &Response{URL: target, Status: status, Body: body, Attempts: attempts}, nil

		case status >= 500:
			logger.WithField("status", status).Error("predict server fault, aborting fallback")
			attempts = append(attempts, Attempt{
				URL:     target,
				Status:  intPtr(status),
				Body:    string(body),
				Message: fmt.Sprintf("HTTP %d", status),
			})
			return nil, &ServerError{URL: target, Status: status, Body: string(body), Attempts: attempts}

		default:
			logger.WithField("status", status).Warn("predict rejected, trying next endpoint")
			attempts = append(attempts, Attempt{
				URL:     target,
				Status:  intPtr(status),
				Body:    string(body),
				Message: fmt.Sprintf("HTTP %d", status),
			})
		}
	}

	return nil, &AllEndpointsFailedError{Attempts: attempts}
}

func (r *Resolver) resolve(endpoint string) (string, bool) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint, true
	}
	if r.baseURL == "" {
		return "", false
	}
	return r.baseURL + "/" + strings.TrimPrefix(endpoint, "/"), true
}

func (r *Resolver) post(ctx context.Context, target string, jsonBody []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(jsonBody))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	log.WithFields(log.Fields{"url": target, "request_id": req.Header.Get("X-Request-ID")}).Debug("posting prediction")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBytes, nil
}

func intPtr(v int) *int {
	return &v
}
