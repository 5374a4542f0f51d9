package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/config"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

// fakeService records predict bodies and answers with a fixed response.
type fakeService struct {
	mu       sync.Mutex
	texts    []string
	status   int
	body     string
	health   string
	healthOK bool
}

func (f *fakeService) start(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/predict":
			var req api.PredictionRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.mu.Lock()
			f.texts = append(f.texts, req.EmailText)
			f.mu.Unlock()
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
		case "/health":
			if !f.healthOK {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(f.health))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func (f *fakeService) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func spamService() *fakeService {
	return &fakeService{status: http.StatusOK, body: `{"prediction":"Spam","confidence":0.97,"message":"Likely spam"}`}
}

// execute runs the root command in an isolated working directory.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	testChdir(t, t.TempDir())
	cmd := NewRootCommand("1.2.3", "abc123", "2025-06-01")
	return run(t, cmd, stdin, args...)
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestScan_Text(t *testing.T) {
	svc := spamService()
	url := svc.start(t)

	out, err := execute(t, "", "scan", "--api-url", url, "--text", "win a prize")

	require.NoError(t, err)
	assert.Equal(t, []string{"win a prize"}, svc.received())
	assert.Contains(t, out, "Spam")
	assert.Contains(t, out, "97% confident")
	assert.Contains(t, out, "Likely spam")
	assert.Contains(t, out, "0.9700")
}

func TestScan_Stdin(t *testing.T) {
	svc := spamService()
	url := svc.start(t)

	_, err := execute(t, "line one\nline two\n", "scan", "--api-url", url)

	require.NoError(t, err)
	assert.Equal(t, []string{"line one\nline two\n"}, svc.received())
}

func TestScan_File(t *testing.T) {
	svc := spamService()
	url := svc.start(t)
	path := filepath.Join(t.TempDir(), "mail.txt")
	require.NoError(t, os.WriteFile(path, []byte("from a file"), 0o600))

	_, err := execute(t, "", "scan", "--api-url", url, path)

	require.NoError(t, err)
	assert.Equal(t, []string{"from a file"}, svc.received())
}

func TestScan_ExampleJSON(t *testing.T) {
	svc := spamService()
	url := svc.start(t)

	out, err := execute(t, "", "scan", "--api-url", url, "--example", "spam", "-o", "json")
	require.NoError(t, err)

	want, err := scanner.ExampleText(scanner.ExampleSpam)
	require.NoError(t, err)
	assert.Equal(t, []string{want}, svc.received())

	var report scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, scanReport{Prediction: api.LabelSpam, Confidence: 0.97, ConfidencePercent: 97, Message: "Likely spam"}, report)
}

func TestScan_ServiceErrorExitsNonZero(t *testing.T) {
	svc := &fakeService{status: http.StatusBadRequest, body: `{"detail":"bad input"}`}
	url := svc.start(t)

	out, err := execute(t, "", "scan", "--api-url", url, "--text", "x")

	require.Error(t, err)
	assert.Equal(t, "bad input", err.Error())
	assert.Contains(t, out, "bad input")
}

func TestScan_EmptyInputNeverCallsService(t *testing.T) {
	svc := spamService()
	url := svc.start(t)

	out, err := execute(t, "   \n", "scan", "--api-url", url, "-o", "json")

	require.Error(t, err)
	assert.Equal(t, scanner.EmptyInputMessage, err.Error())
	assert.Empty(t, svc.received())
	assert.Contains(t, out, scanner.EmptyInputMessage)
}

func TestScan_RejectsConflictingSources(t *testing.T) {
	_, err := execute(t, "", "scan", "--text", "a", "--example", "safe")
	assert.Error(t, err)

	_, err = execute(t, "", "scan", "--example", "nope")
	assert.Error(t, err)

	_, err = execute(t, "", "scan", "--text", "a", "-o", "yaml")
	assert.Error(t, err)
}

func TestScan_APIURLFromEnvironment(t *testing.T) {
	svc := spamService()
	url := svc.start(t)
	t.Setenv("VEIL_API_URL", url+"/")

	_, err := execute(t, "", "scan", "--text", "env configured")

	require.NoError(t, err)
	assert.Equal(t, []string{"env configured"}, svc.received())
}

func TestHealth(t *testing.T) {
	svc := &fakeService{healthOK: true, health: `{"status":"healthy","model_loaded":true,"message":"ready"}`}
	url := svc.start(t)

	out, err := execute(t, "", "health", "--api-url", url)

	require.NoError(t, err)
	assert.Contains(t, out, "Status:       healthy")
	assert.Contains(t, out, "Model loaded: true")
	assert.Contains(t, out, "Message:      ready")
}

func TestHealth_Down(t *testing.T) {
	svc := &fakeService{}
	url := svc.start(t)

	_, err := execute(t, "", "health", "--api-url", url)

	require.Error(t, err)
	assert.Equal(t, api.HealthFailureMessage, err.Error())
}

func TestFilters(t *testing.T) {
	file := filepath.Join(t.TempDir(), "filters.json")

	_, err := execute(t, "", "filters", "ignore-sender", "news@example.com", "--filters-file", file)
	require.NoError(t, err)
	_, err = execute(t, "", "filters", "ignore-subject", "webinar", "--filters-file", file)
	require.NoError(t, err)
	_, err = execute(t, "", "filters", "ignore-body", "unsubscribe", "--filters-file", file)
	require.NoError(t, err)

	out, err := execute(t, "", "filters", "list", "--filters-file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Ignored senders:\n  news@example.com")
	assert.Contains(t, out, "Ignored subject keywords:\n  webinar")
	assert.Contains(t, out, "Ignored body keywords:\n  unsubscribe")

	_, err = execute(t, "", "filters", "unignore-sender", "news@example.com", "--filters-file", file)
	require.NoError(t, err)
	fm, err := config.NewFilterManager(file)
	require.NoError(t, err)
	assert.Empty(t, fm.GetFilters().IgnoreSenders)
}

type fakeInbox struct{ msgs []gmail.Message }

func (f fakeInbox) Recent(_ context.Context, count int64) ([]gmail.Message, error) {
	if int64(len(f.msgs)) > count {
		return f.msgs[:count], nil
	}
	return f.msgs, nil
}

func TestInbox(t *testing.T) {
	svc := spamService()
	url := svc.start(t)
	testChdir(t, t.TempDir())

	inbox := fakeInbox{msgs: []gmail.Message{
		{ID: "1", From: "Prize Team <win@prize.example>", Subject: "You won", Body: "Claim now"},
		{ID: "2", From: "boss@work.example", Subject: "Standup", Snippet: "at ten"},
		{ID: "3", From: "x@y.example", Subject: "not fetched"},
	}}
	opts := &rootOptions{
		v: config.NewViper(),
		newInbox: func(context.Context, *cobra.Command, *config.Settings, *zap.Logger) (inboxSource, error) {
			return inbox, nil
		},
	}
	cmd := newRootCommand(opts, "dev", "none", "unknown")

	out, err := run(t, cmd, "", "inbox", "--api-url", url, "--count", "2")

	require.NoError(t, err)
	assert.Equal(t, []string{"You won\n\nClaim now", "Standup\n\nat ten"}, svc.received())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Spam")
	assert.Contains(t, lines[0], "97%")
	assert.Contains(t, lines[0], "Prize Team")
	assert.Contains(t, lines[1], "Standup")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.Contains(t, out, "veil 1.2.3 (abc123) built on 2025-06-01")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
