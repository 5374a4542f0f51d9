package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	endpoint string
	outcome  string
}

type fakeObserver struct {
	mu          sync.Mutex
	calls       []recordedCall
	predictions []Label
}

func (f *fakeObserver) ObserveRequest(endpoint, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{endpoint: endpoint, outcome: outcome})
}

func (f *fakeObserver) ObservePrediction(label Label, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.predictions = append(f.predictions, label)
}

func TestClient_Predict(t *testing.T) {
	t.Run("successful prediction", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			assert.Equal(t, "/api/predict", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req PredictionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "win a prize now", req.EmailText)

			w.Header().Set("Content-Type", "application/json")
			_, err := w.Write([]byte(`{"prediction":"Spam","confidence":0.97,"message":"Likely spam"}`))
			require.NoError(t, err)
		}))
		defer server.Close()

		obs := &fakeObserver{}
		client := NewClient(server.URL, WithObserver(obs))
		result, err := client.Predict(context.Background(), "win a prize now")

		require.NoError(t, err)
		assert.Equal(t, 1, requests)
		assert.Equal(t, LabelSpam, result.Prediction)
		assert.Equal(t, 0.97, result.Confidence)
		assert.Equal(t, "Likely spam", result.Message)
		assert.Equal(t, 97, result.ConfidencePercent())
		assert.Equal(t, []recordedCall{{EndpointPredict, OutcomeSuccess}}, obs.calls)
		assert.Equal(t, []Label{LabelSpam}, obs.predictions)
	})

	t.Run("raw body is exactly the email_text object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var raw map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
			assert.Equal(t, map[string]any{"email_text": "  padded  "}, raw)
			_, _ = w.Write([]byte(`{"prediction":"Safe","confidence":0.5,"message":"ok"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Predict(context.Background(), "  padded  ")
		require.NoError(t, err)
	})

	t.Run("error status with detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"bad input"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Predict(context.Background(), "x")

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusBadRequest, reqErr.Status)
		assert.Equal(t, "bad input", reqErr.Error())
	})

	t.Run("error status with unparsable body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("internal error"))
		}))
		defer server.Close()

		obs := &fakeObserver{}
		_, err := NewClient(server.URL, WithObserver(obs)).Predict(context.Background(), "x")

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusInternalServerError, reqErr.Status)
		assert.Equal(t, FallbackPredictMessage, reqErr.Message)
		assert.Equal(t, []recordedCall{{EndpointPredict, OutcomeHTTPError}}, obs.calls)
	})

	t.Run("error status with non-string detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","email_text"],"msg":"field required"}]}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Predict(context.Background(), "x")
		require.Error(t, err)
		assert.Equal(t, FallbackPredictMessage, err.Error())
	})

	t.Run("unknown label", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"prediction":"Suspicious","confidence":0.6,"message":"hmm"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Predict(context.Background(), "x")

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Contains(t, err.Error(), "Suspicious")
	})

	t.Run("malformed success body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).Predict(context.Background(), "x")

		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("connection error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		obs := &fakeObserver{}
		_, err := NewClient(url, WithObserver(obs)).Predict(context.Background(), "x")

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Zero(t, reqErr.Status)
		assert.Equal(t, UnreachableMessage, reqErr.Message)
		assert.NotNil(t, reqErr.Unwrap())
		assert.Equal(t, []recordedCall{{EndpointPredict, OutcomeUnreachable}}, obs.calls)
	})
}

func TestClient_CheckHealth(t *testing.T) {
	t.Run("healthy service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			assert.Equal(t, http.MethodGet, r.Method)
			_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", ModelLoaded: true, Message: "Model is ready"})
		}))
		defer server.Close()

		result, err := NewClient(server.URL + "/").CheckHealth(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "healthy", result.Status)
		assert.True(t, result.ModelLoaded)
		assert.Equal(t, "Model is ready", result.Message)
	})

	t.Run("unhealthy service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"detail":"ignored"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL).CheckHealth(context.Background())

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, HealthFailureMessage, reqErr.Message)
		assert.Equal(t, http.StatusServiceUnavailable, reqErr.Status)
	})
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	assert.Equal(t, "http://localhost:8000", NewClient("http://localhost:8000///").BaseURL())
}

func TestLabel_Valid(t *testing.T) {
	for _, l := range []Label{LabelSafe, LabelSpam, LabelPhishing} {
		assert.True(t, l.Valid(), l)
	}
	assert.False(t, Label("safe").Valid())
	assert.False(t, Label("").Valid())
}

func TestConfidencePercent(t *testing.T) {
	assert.Equal(t, 97, PredictionResponse{Confidence: 0.97}.ConfidencePercent())
	assert.Equal(t, 88, PredictionResponse{Confidence: 0.8765}.ConfidencePercent())
	assert.Equal(t, 0, PredictionResponse{Confidence: 0.004}.ConfidencePercent())
	assert.Equal(t, 100, PredictionResponse{Confidence: 1}.ConfidencePercent())
}
