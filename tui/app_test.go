package tui

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/config"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

func newTestFormApp(t *testing.T, b Backend, inbox <-chan gmail.Message, filters *config.FilterManager) *FormApp {
	t.Helper()
	return NewFormApp(context.Background(), Options{Backend: b, Inbox: inbox, Filters: filters, APIBaseURL: "http://localhost:8000"})
}

func TestFormApp_SubmitAndResolve(t *testing.T) {
	backend := &fakeBackend{resp: spamResult}
	a := newTestFormApp(t, backend, nil, nil)
	a.setInput("claim your prize")
	require.Equal(t, "claim your prize", a.scanForm.input.GetText())

	task := a.beginSubmit()
	require.NotNil(t, task)
	assert.True(t, a.state.IsLoading)
	assert.Equal(t, "Analyzing...", a.scanForm.buttons.GetButton(buttonScan).GetLabel())

	a.resolve(task.Run(context.Background(), backend))

	assert.False(t, a.state.IsLoading)
	text := a.resultView.GetText(true)
	assert.Contains(t, text, "Spam")
	assert.Contains(t, text, "97% confident")
	assert.Contains(t, text, "Likely spam")
	assert.Contains(t, text, "0.9700")
	assert.Equal(t, "Scan Email", a.scanForm.buttons.GetButton(buttonScan).GetLabel())
}

func TestFormApp_EmptySubmit(t *testing.T) {
	a := newTestFormApp(t, &fakeBackend{}, nil, nil)

	assert.Nil(t, a.beginSubmit())
	assert.Contains(t, a.resultView.GetText(true), scanner.EmptyInputMessage)
}

func TestFormApp_StaleOutcomeIgnored(t *testing.T) {
	a := newTestFormApp(t, &fakeBackend{}, nil, nil)
	a.setInput("text")
	require.NotNil(t, a.beginSubmit())

	a.resolve(scanner.Outcome{Ticket: 42, Response: spamResult})

	assert.True(t, a.state.IsLoading)
	assert.Contains(t, a.resultView.GetText(true), "Analyzing...")
}

func TestFormApp_ExamplesAndClear(t *testing.T) {
	a := newTestFormApp(t, &fakeBackend{}, nil, nil)

	a.loadExample(scanner.ExampleSpam)
	spam, err := scanner.ExampleText(scanner.ExampleSpam)
	require.NoError(t, err)
	assert.Equal(t, spam, a.state.InputText)
	assert.Equal(t, spam, a.scanForm.input.GetText())

	a.clear()
	assert.Empty(t, a.state.InputText)
	assert.Empty(t, a.scanForm.input.GetText())
	assert.Equal(t, scanner.PhaseIdle, a.state.Phase())
}

func TestFormApp_ClearIgnoredWhileLoading(t *testing.T) {
	a := newTestFormApp(t, &fakeBackend{}, nil, nil)
	a.setInput("keep me")
	require.NotNil(t, a.beginSubmit())

	a.clear()
	a.loadExample(scanner.ExampleSafe)

	assert.Equal(t, "keep me", a.state.InputText)
	assert.True(t, a.state.IsLoading)
}

func TestFormApp_InboxLoadAndIgnore(t *testing.T) {
	filters, err := config.NewFilterManager(filepath.Join(t.TempDir(), "filters.json"))
	require.NoError(t, err)
	a := newTestFormApp(t, &fakeBackend{}, make(chan gmail.Message), filters)

	a.emailList.AddEmail(gmail.Message{ID: "1", From: "Promo <promo@ads.example>", Subject: "Deal", Body: "cheap", InternalDate: 2})
	a.emailList.AddEmail(gmail.Message{ID: "2", From: "friend@home.example", Subject: "Hi", Body: "lunch?", InternalDate: 1})
	require.Equal(t, 2, a.emailList.Len())

	email, ok := a.emailList.Selected()
	require.True(t, ok)
	assert.Equal(t, "1", email.ID)

	a.ignoreSelectedSender()
	assert.Equal(t, 1, a.emailList.Len())
	assert.Equal(t, []string{"promo@ads.example"}, filters.GetFilters().IgnoreSenders)

	remaining, ok := a.emailList.Selected()
	require.True(t, ok)
	a.loadEmail(remaining)
	assert.Equal(t, "Hi\n\nlunch?", a.state.InputText)
	page, _ := a.rootPages.GetFrontPage()
	assert.Equal(t, PageScanner, page)
}

func TestResultText(t *testing.T) {
	text := resultText(api.PredictionResponse{Prediction: api.LabelPhishing, Confidence: 0.5, Message: "Careful [link]"}, 10)

	assert.Contains(t, text, "[red::b]Phishing")
	assert.Contains(t, text, "50% confident")
	assert.Contains(t, text, "0.5000")
	assert.Contains(t, text, "█████[-][gray]░░░░░")
	assert.Contains(t, text, "Careful [link[]")
}
