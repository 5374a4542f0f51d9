package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/bassamadnan/veil/config"
)

func encode(s string) string { return base64.URLEncoding.EncodeToString([]byte(s)) }

func plainMessage(id, from, subject, body string, internalDate int64) *gmail.Message {
	return &gmail.Message{
		Id:           id,
		Snippet:      "snippet of " + id,
		InternalDate: internalDate,
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "Subject", Value: subject},
				{Name: "Date", Value: "Tue, 3 Jun 2025 10:15:00 +0200 (CEST)"},
			},
			Body: &gmail.MessagePartBody{Data: encode(body)},
		},
	}
}

// fakeGmail serves the two Gmail endpoints the client uses from an in-memory mailbox.
func fakeGmail(t *testing.T, mailbox []*gmail.Message) *gmail.Service {
	t.Helper()
	byID := map[string]*gmail.Message{}
	for _, m := range mailbox {
		byID[m.Id] = m
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "/gmail/v1/users/me/messages"
		assert.True(t, strings.HasPrefix(r.URL.Path, prefix), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		rest := strings.TrimPrefix(r.URL.Path, prefix)
		if rest == "" {
			assert.Equal(t, "in:inbox -in:draft", r.URL.Query().Get("q"))
			var refs []*gmail.Message
			for _, m := range mailbox {
				refs = append(refs, &gmail.Message{Id: m.Id})
			}
			_ = json.NewEncoder(w).Encode(&gmail.ListMessagesResponse{Messages: refs})
			return
		}
		msg, ok := byID[strings.TrimPrefix(rest, "/")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(msg)
	}))
	t.Cleanup(server.Close)

	srv, err := gmail.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return srv
}

func TestClient_RecentAppliesFilters(t *testing.T) {
	srv := fakeGmail(t, []*gmail.Message{
		plainMessage("m3", "Boss <boss@work.example>", "Deadline", "Ship it Friday.", 3000),
		plainMessage("m2", "Deals <deals@shop.example>", "Flash sale", "50% off", 2000),
		plainMessage("m1", "Mom <mom@home.example>", "Dinner", "Sunday?", 1000),
	})
	filters, err := config.NewFilterManager(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	require.NoError(t, filters.AddIgnoreSender("shop.example"))

	client := NewClientWithService(srv, filters, zap.NewNop())
	msgs, err := client.Recent(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m3", msgs[0].ID)
	assert.Equal(t, "Deadline", msgs[0].Subject)
	assert.Equal(t, "Ship it Friday.", msgs[0].Body)
	assert.Equal(t, "m1", msgs[1].ID)
}

func TestClient_MonitorSendsOldestFirstAndCloses(t *testing.T) {
	srv := fakeGmail(t, []*gmail.Message{
		plainMessage("b", "b@example.com", "second", "2", 2000),
		plainMessage("a", "a@example.com", "first", "1", 1000),
	})
	client := NewClientWithService(srv, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Message, 4)
	done := make(chan struct{})
	go func() {
		client.Monitor(ctx, out, 10, 10, 0, time.Hour)
		close(done)
	}()

	first := <-out
	second := <-out
	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)

	cancel()
	<-done
	_, open := <-out
	assert.False(t, open)
}

func TestNewerThan(t *testing.T) {
	refs := []*gmail.Message{{Id: "c"}, {Id: "b"}, {Id: "a"}}
	assert.Len(t, newerThan(refs, ""), 3)
	assert.Equal(t, []*gmail.Message{{Id: "c"}}, newerThan(refs, "b"))
	assert.Empty(t, newerThan(refs, "c"))
}

func TestParseMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:           "x1",
		InternalDate: 1717400000000,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: `"Support Team" <support@bank.example>`},
				{Name: "To", Value: "me@example.com"},
				{Name: "Subject", Value: "Verify your account"},
				{Name: "Date", Value: "not a date"},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>html</p>")}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: strings.TrimRight(encode("plain body!"), "=")}},
			},
		},
	}

	got := parseMessage(msg, zap.NewNop())

	assert.Equal(t, "plain body!", got.Body)
	assert.Equal(t, "Verify your account", got.Subject)
	assert.Equal(t, "me@example.com", got.To)
	assert.Equal(t, time.UnixMilli(1717400000000), got.Date)
	assert.Equal(t, "Support Team", got.SenderName())
	assert.Equal(t, "support@bank.example", got.SenderAddress())
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{
		"Tue, 03 Jun 2025 10:15:00 +0200",
		"Tue, 3 Jun 2025 10:15:00 +0200 (CEST)",
		"3 Jun 2025 10:15:00 +0200",
	} {
		got, err := parseDate(value)
		require.NoError(t, err, value)
		assert.Equal(t, time.Date(2025, 6, 3, 8, 15, 0, 0, time.UTC), got.UTC(), value)
	}
	_, err := parseDate("yesterday")
	assert.Error(t, err)
}

func TestMessage_ScanText(t *testing.T) {
	assert.Equal(t, "Hello\n\nline one\nline two", Message{Subject: "Hello", Body: "line one\r\nline two\r\n"}.ScanText())
	assert.Equal(t, "Hello\n\nshort", Message{Subject: "Hello", Snippet: "short"}.ScanText())
	assert.Equal(t, "just body", Message{Body: "just body"}.ScanText())
	assert.Equal(t, "Only subject", Message{Subject: "Only subject"}.ScanText())
}

func TestTerminalPrompt(t *testing.T) {
	var out strings.Builder
	prompt := TerminalPrompt(&out, strings.NewReader("4/abc-code\n"))

	code, err := prompt("https://accounts.example/auth")

	require.NoError(t, err)
	assert.Equal(t, "4/abc-code", code)
	assert.Contains(t, out.String(), "https://accounts.example/auth")
}

func TestTokenFromFile_Missing(t *testing.T) {
	_, err := tokenFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
