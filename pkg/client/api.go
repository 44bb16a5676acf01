package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/helmcode/riskctl/pkg/model"
)

// API talks to the read-side endpoints of the prediction backend and to
// /send-alert. Unlike Resolver it uses a single base URL.
type API struct {
	baseURL string
	client  *http.Client
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	return NewAPIWithClient(baseURL, &http.Client{Timeout: timeout})
}

func NewAPIWithClient(baseURL string, httpClient *http.Client) *API {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL != "" && !strings.HasPrefix(baseURL, "http") {
		baseURL = "http://" + baseURL
	}
	return &API{baseURL: baseURL, client: httpClient}
}

func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) FetchHistory(ctx context.Context, studentID string) (*model.HistoryResponse, error) {
	path := "/student-history/" + url.PathEscape(studentID)
	var out model.HistoryResponse
	if err := a.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, a.bodyError(http.MethodGet, path, out.Error)
	}
	return &out, nil
}

func (a *API) TeacherSummary(ctx context.Context) (*model.AnalyticsSummary, error) {
	return a.summary(ctx, "/teacher-summary")
}

func (a *API) AnalyticsSummary(ctx context.Context) (*model.AnalyticsSummary, error) {
	return a.summary(ctx, "/analytics-summary")
}

func (a *API) summary(ctx context.Context, path string) (*model.AnalyticsSummary, error) {
	var out model.AnalyticsSummary
	if err := a.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, a.bodyError(http.MethodGet, path, out.Error)
	}
	return &out, nil
}

func (a *API) CohortStats(ctx context.Context) ([]model.CohortSummary, error) {
	var out model.CohortStats
	if err := a.getJSON(ctx, "/cohort-stats", &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, a.bodyError(http.MethodGet, "/cohort-stats", out.Error)
	}
	return out.Cohorts, nil
}

// CohortExport returns the backend's CSV for one cohort. ErrNoContent
// means the cohort has no rows.
func (a *API) CohortExport(ctx context.Context, cohort string) ([]byte, error) {
	q := url.Values{}
	q.Set("cohort", cohort)
	return a.getRaw(ctx, "/cohort-export?"+q.Encode())
}

func (a *API) StudentReport(ctx context.Context, studentID string) ([]byte, error) {
	return a.getRaw(ctx, "/student-report/"+url.PathEscape(studentID))
}

// SendAlert posts an alert. Any status other than "ok" is an error.
func (a *API) SendAlert(ctx context.Context, req model.AlertRequest) (*model.AlertResponse, error) {
	if req.Method == "" {
		req.Method = "manual"
	}
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	status, body, err := a.do(ctx, http.MethodPost, "/send-alert", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{Method: http.MethodPost, URL: a.baseURL + "/send-alert", Status: status, Message: string(body)}
	}

	var out model.AlertResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode alert response: %w", err)
	}
	if out.Status != "ok" {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("alert status %q", out.Status)
		}
		return &out, a.bodyError(http.MethodPost, "/send-alert", msg)
	}
	return &out, nil
}

func (a *API) getJSON(ctx context.Context, path string, out interface{}) error {
	status, body, err := a.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Method: http.MethodGet, URL: a.baseURL + path, Status: status, Message: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (a *API) getRaw(ctx context.Context, path string) ([]byte, error) {
	status, body, err := a.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNoContent:
		return nil, fmt.Errorf("%s: %w", path, ErrNoContent)
	case status != http.StatusOK:
		return nil, &APIError{Method: http.MethodGet, URL: a.baseURL + path, Status: status, Message: string(body)}
	}

	// Export endpoints fall back to a JSON error object on failure.
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(trimmed, &e) == nil && e.Error != "" {
			return nil, a.bodyError(http.MethodGet, path, e.Error)
		}
	}
	return body, nil
}

func (a *API) do(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	log.WithFields(log.Fields{"method": method, "url": req.URL.String()}).Debug("backend request")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", path, err)
	}
	return resp.StatusCode, respBytes, nil
}

func (a *API) bodyError(method, path, msg string) error {
	return &APIError{Method: method, URL: a.baseURL + path, Status: http.StatusOK, Message: msg}
}
