package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/helmcode/riskctl/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEndpoint struct {
	server *httptest.Server
	hits   atomic.Int32
}

func newFakeEndpoint(t *testing.T, status int, body string) *fakeEndpoint {
	t.Helper()
	f := &fakeEndpoint{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeEndpoint) url() string {
	return f.server.URL + "/predict"
}

const okPrediction = `{"student_id":"S1","risk_level":"High","confidence":0.91,"recommended_action":"Call guardian","reasons":["Attendance dropped"]}`

func sampleRequest() model.PredictionRequest {
	return model.PredictionRequest{StudentID: "S1", AttendanceCurrent: 60, AttendancePrev: 85, TotalDays: 90}
}

func TestSubmitStopsOnFirstSuccess(t *testing.T) {
	a := newFakeEndpoint(t, http.StatusOK, okPrediction)
	b := newFakeEndpoint(t, http.StatusOK, okPrediction)

	r := NewResolver([]string{a.url(), b.url()}, "", 0)
	result, resp, err := r.SubmitPrediction(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, result.RiskLevel)
	assert.Equal(t, "91%", result.ConfidencePercent())
	assert.Equal(t, a.url(), resp.URL)
	assert.Empty(t, resp.Attempts)
	assert.EqualValues(t, 1, a.hits.Load())
	assert.EqualValues(t, 0, b.hits.Load())
}

func TestSubmitServerFaultAbortsChain(t *testing.T) {
	a := newFakeEndpoint(t, http.StatusInternalServerError, `{"error":"Model prediction failed"}`)
	b := newFakeEndpoint(t, http.StatusOK, okPrediction)

	r := NewResolver([]string{a.url(), b.url()}, "", 0)
	_, _, err := r.SubmitPrediction(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerFault))

	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, a.url(), serverErr.URL)
	assert.Equal(t, http.StatusInternalServerError, serverErr.Status)
	assert.Contains(t, serverErr.Body, "Model prediction failed")
	assert.EqualValues(t, 0, b.hits.Load())
}

func TestSubmitFallsBackPastClientError(t *testing.T) {
	a := newFakeEndpoint(t, http.StatusNotFound, `{"detail":"Not Found"}`)
	b := newFakeEndpoint(t, http.StatusOK, okPrediction)

	r := NewResolver([]string{a.url(), b.url()}, "", 0)
	result, resp, err := r.SubmitPrediction(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "S1", result.StudentID)
	assert.Equal(t, b.url(), resp.URL)
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, a.url(), resp.Attempts[0].URL)
	require.NotNil(t, resp.Attempts[0].Status)
	assert.Equal(t, http.StatusNotFound, *resp.Attempts[0].Status)
}

func TestSubmitAllEndpointsFail(t *testing.T) {
	a := newFakeEndpoint(t, http.StatusUnprocessableEntity, `{"detail":"bad"}`)
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL + "/predict"
	dead.Close()

	r := NewResolver([]string{a.url(), deadURL, "/predict"}, "", 0)
	_, err := r.Submit(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllEndpointsExhausted))

	var allErr *AllEndpointsFailedError
	require.True(t, errors.As(err, &allErr))
	require.Len(t, allErr.Attempts, 3)
	assert.Equal(t, a.url(), allErr.Attempts[0].URL)
	assert.Equal(t, deadURL, allErr.Attempts[1].URL)
	assert.Nil(t, allErr.Attempts[1].Status)
	assert.Equal(t, "/predict", allErr.Attempts[2].URL)
	assert.Equal(t, "relative endpoint without base URL", allErr.Attempts[2].Message)

	assert.Contains(t, err.Error(), a.url()+" => 422 : {\"detail\":\"bad\"}")
	assert.Contains(t, err.Error(), deadURL+" => no-response : ")
}

func TestSubmitResolvesRelativeEndpoint(t *testing.T) {
	var got model.PredictionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(okPrediction))
	}))
	defer srv.Close()

	r := NewResolver([]string{"/predict"}, srv.URL+"/", 0)
	_, resp, err := r.SubmitPrediction(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/predict", resp.URL)
	assert.Equal(t, sampleRequest(), got)
}

func TestSubmitRespectsCancelledContext(t *testing.T) {
	a := newFakeEndpoint(t, http.StatusOK, okPrediction)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver([]string{a.url()}, "", 0)
	_, err := r.Submit(ctx, sampleRequest())

	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, a.hits.Load())
}

func TestSubmitPredictionDecodeError(t *testing.T) {
	a := newFakeEndpoint(t, http.StatusOK, `not json`)

	r := NewResolver([]string{a.url()}, "", 0)
	_, resp, err := r.SubmitPrediction(context.Background(), sampleRequest())

	assert.ErrorContains(t, err, "decode prediction")
	require.NotNil(t, resp)
	assert.Equal(t, a.url(), resp.URL)
}

func TestSubmitRecordsRedirectAsFailedAttempt(t *testing.T) {
	var moved atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/moved", http.StatusFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		moved.Add(1)
		_, _ = w.Write([]byte(okPrediction))
	})
	mux.HandleFunc("/other", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(okPrediction))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	r := NewResolver([]string{srv.URL + "/predict", srv.URL + "/other"}, "", 0)
	result, resp, err := r.SubmitPrediction(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "S1", result.StudentID)
	assert.Equal(t, srv.URL+"/other", resp.URL)
	require.Len(t, resp.Attempts, 1)
	assert.Equal(t, srv.URL+"/predict", resp.Attempts[0].URL)
	require.NotNil(t, resp.Attempts[0].Status)
	assert.Equal(t, http.StatusFound, *resp.Attempts[0].Status)
	assert.EqualValues(t, 0, moved.Load())
}

func TestNewResolverWithClientLeavesCallerClientAlone(t *testing.T) {
	hc := &http.Client{}

	NewResolverWithClient([]string{"http://127.0.0.1:8000/predict"}, "", hc)

	assert.Nil(t, hc.CheckRedirect)
}
