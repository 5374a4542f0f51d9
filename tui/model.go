package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/config"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

// Backend is what the screens need from the classification service.
type Backend interface {
	scanner.Predictor
	CheckHealth(ctx context.Context) (*api.HealthResponse, error)
}

type viewState int

const (
	viewScanner viewState = iota
	viewInbox
)

const (
	emailListItemHeight = 4
	minListPaneWidth    = 30
	minPreviewPaneWidth = 40
	tempStatusDuration  = 4 * time.Second
)

// Options configures the scanner screen. Inbox and Filters are nil when Gmail
// is disabled.
type Options struct {
	Backend    Backend
	Inbox      <-chan gmail.Message
	Filters    *config.FilterManager
	Logger     *zap.Logger
	APIBaseURL string
}

type Model struct {
	ctx        context.Context
	backend    Backend
	inboxChan  <-chan gmail.Message
	filters    *config.FilterManager
	logger     *zap.Logger
	apiBaseURL string
	keys       keyMap

	state   scanner.State
	input   textarea.Model
	spinner spinner.Model

	health    *api.HealthResponse
	healthErr string

	currentView     viewState
	allEmails       []gmail.Message
	selectedIdx     int
	viewportTopLine int
	isInboxDone     bool

	width, height int
	statusBarText string
	statusIsError bool
	statusIsTemp  bool
	tempSeq       int
}

func NewModel(ctx context.Context, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	input := textarea.New()
	input.Placeholder = "Paste your email content here..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.MaxHeight = 0
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))

	m := Model{
		ctx:        ctx,
		backend:    opts.Backend,
		inboxChan:  opts.Inbox,
		filters:    opts.Filters,
		logger:     logger,
		apiBaseURL: opts.APIBaseURL,
		keys:       defaultKeyMap(),
		state:      scanner.New(),
		input:      input,
		spinner:    spin,
	}
	m.setStandardStatus()
	return m
}

// State exposes the scanner state for inspection.
func (m Model) State() scanner.State { return m.state }

func (m Model) Init() tea.Cmd {
	m.logger.Debug("scanner screen started", zap.Bool("inbox", m.inboxChan != nil))
	cmds := []tea.Cmd{
		textarea.Blink,
		statusTickCmd(time.Second),
		healthCmd(m.ctx, m.backend),
	}
	if m.inboxChan != nil {
		cmds = append(cmds, waitForEmailCmd(m.inboxChan))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeInput()
		m.ensureSelectedVisible()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.updateStatusBar("Quitting...")
			return m, tea.Quit
		}
		if m.currentView == viewInbox {
			return m.updateInbox(msg)
		}
		return m.updateScanner(msg)

	case predictionDoneMsg:
		outcome := scanner.Outcome(msg)
		before := m.state
		m.state = m.state.Resolve(outcome)
		if m.state == before {
			m.logger.Debug("discarded stale prediction", zap.Uint64("ticket", outcome.Ticket))
			break
		}
		cmds = append(cmds, m.input.Focus())
		switch m.state.Phase() {
		case scanner.PhaseSettled:
			r := m.state.Result
			m.showTemporaryStatus(fmt.Sprintf("Scan complete: %s (%d%%)", r.Prediction, r.ConfidencePercent()), &cmds)
		case scanner.PhaseFailed:
			m.showTemporaryError("Scan failed", &cmds)
		}

	case healthMsg:
		m.health = msg.health
		m.healthErr = ""
		if msg.err != nil {
			m.health = nil
			m.healthErr = scanner.ErrorMessage(msg.err)
			m.showTemporaryError(m.healthErr, &cmds)
		} else {
			m.showTemporaryStatus("Backend: "+msg.health.Status, &cmds)
		}

	case spinner.TickMsg:
		if m.state.IsLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case NewEmailMsg:
		m.addEmail(gmail.Message(msg))
		m.showTemporaryStatus(fmt.Sprintf("New: %s", truncate(msg.Subject, 30)), &cmds)
		cmds = append(cmds, waitForEmailCmd(m.inboxChan))

	case EmailMonitorStoppedMsg:
		m.isInboxDone = true
		m.logger.Info("inbox monitor stopped")
		m.setStandardStatus()

	case StatusTickMsg:
		m.setStandardStatus()
		cmds = append(cmds, statusTickCmd(time.Second))

	case clearTempStatusMsg:
		if m.statusIsTemp && msg.seq == m.tempSeq {
			m.statusIsTemp = false
			m.statusIsError = false
			m.setStandardStatus()
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) updateScanner(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Scan):
		return m.submit()

	case key.Matches(msg, m.keys.Clear):
		if m.state.IsLoading {
			return m, nil
		}
		m.state = m.state.Clear()
		m.input.Reset()
		m.setStandardStatus()

	case key.Matches(msg, m.keys.SafeExample):
		m.loadExample(scanner.ExampleSafe)

	case key.Matches(msg, m.keys.SpamExample):
		m.loadExample(scanner.ExampleSpam)

	case key.Matches(msg, m.keys.Health):
		m.updateStatusBar("Checking backend...")
		return m, healthCmd(m.ctx, m.backend)

	case key.Matches(msg, m.keys.Inbox):
		if m.inboxChan == nil {
			var cmds []tea.Cmd
			m.showTemporaryStatus("Gmail is not enabled", &cmds)
			return m, tea.Batch(cmds...)
		}
		m.currentView = viewInbox
		m.input.Blur()
		m.ensureSelectedVisible()
		m.setStandardStatus()

	default:
		if m.state.IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.state = m.state.SetInput(m.input.Value())
		return m, cmd
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	next, task := m.state.Submit()
	m.state = next
	if task == nil {
		var cmds []tea.Cmd
		if next.Error != "" {
			m.showTemporaryError(next.Error, &cmds)
		}
		return m, tea.Batch(cmds...)
	}
	m.logger.Debug("submitting email", zap.Uint64("ticket", task.Ticket), zap.Int("chars", len(task.Text)))
	m.input.Blur()
	m.updateStatusBar("Analyzing...")
	return m, tea.Batch(m.spinner.Tick, predictCmd(m.ctx, m.backend, *task))
}

func (m *Model) loadExample(kind scanner.ExampleKind) {
	if m.state.IsLoading {
		return
	}
	next, err := m.state.LoadExample(kind)
	if err != nil {
		m.logger.Warn("unable to load example", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	m.state = next
	m.input.SetValue(next.InputText)
}

func (m Model) updateInbox(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Back):
		m.currentView = viewScanner
		cmds = append(cmds, m.input.Focus())
		m.setStandardStatus()

	case key.Matches(msg, m.keys.Up):
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.ensureSelectedVisible()
		}

	case key.Matches(msg, m.keys.Down):
		if m.selectedIdx < len(m.allEmails)-1 {
			m.selectedIdx++
			m.ensureSelectedVisible()
		}

	case key.Matches(msg, m.keys.Select):
		email, ok := m.selectedEmail()
		if !ok {
			break
		}
		if m.state.IsLoading {
			m.showTemporaryStatus("A scan is already running", &cmds)
			break
		}
		m.state = m.state.LoadText(email.ScanText())
		m.input.SetValue(m.state.InputText)
		m.currentView = viewScanner
		cmds = append(cmds, m.input.Focus())
		m.showTemporaryStatus(fmt.Sprintf("Loaded: %s", truncate(email.Subject, 30)), &cmds)

	case key.Matches(msg, m.keys.Ignore):
		email, ok := m.selectedEmail()
		if !ok || m.filters == nil {
			break
		}
		sender := email.SenderAddress()
		if err := m.filters.AddIgnoreSender(sender); err != nil {
			m.logger.Error("unable to save filter", zap.String("sender", sender), zap.Error(err))
			m.showTemporaryError(fmt.Sprintf("Error: %v", err), &cmds)
			break
		}
		m.dropSender(sender)
		m.showTemporaryStatus(fmt.Sprintf("Ignoring %s", sender), &cmds)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) selectedEmail() (gmail.Message, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.allEmails) {
		return gmail.Message{}, false
	}
	return m.allEmails[m.selectedIdx], true
}

// addEmail inserts newest first and keeps the selection on the same message.
func (m *Model) addEmail(email gmail.Message) {
	selectedID := ""
	if cur, ok := m.selectedEmail(); ok {
		selectedID = cur.ID
	}
	m.allEmails = append(m.allEmails, email)
	sort.SliceStable(m.allEmails, func(i, j int) bool {
		return m.allEmails[i].InternalDate > m.allEmails[j].InternalDate
	})
	m.selectedIdx = 0
	for i, e := range m.allEmails {
		if e.ID == selectedID {
			m.selectedIdx = i
			break
		}
	}
	m.ensureSelectedVisible()
}

func (m *Model) dropSender(sender string) {
	kept := m.allEmails[:0]
	for _, e := range m.allEmails {
		if !strings.EqualFold(e.SenderAddress(), sender) {
			kept = append(kept, e)
		}
	}
	m.allEmails = kept
	if m.selectedIdx >= len(m.allEmails) {
		m.selectedIdx = len(m.allEmails) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
	m.ensureSelectedVisible()
}

func (m *Model) resizeInput() {
	w := m.width - AppStyle.GetHorizontalFrameSize() - InputBoxStyle.GetHorizontalFrameSize()
	if w < 20 {
		w = 20
	}
	m.input.SetWidth(w)
	h := m.height / 3
	if h < 3 {
		h = 3
	}
	m.input.SetHeight(h)
}

func (m *Model) showTemporaryStatus(text string, cmds *[]tea.Cmd) {
	m.tempSeq++
	m.statusBarText = text
	m.statusIsError = false
	m.statusIsTemp = true
	*cmds = append(*cmds, clearTempStatusCmd(m.tempSeq, tempStatusDuration))
}

func (m *Model) showTemporaryError(text string, cmds *[]tea.Cmd) {
	m.showTemporaryStatus(text, cmds)
	m.statusIsError = true
}

func (m *Model) updateStatusBar(text string) {
	m.statusBarText = text
	m.statusIsError = false
	m.statusIsTemp = false
}

func (m *Model) setStandardStatus() {
	if m.statusIsTemp {
		return
	}
	if m.state.IsLoading {
		m.updateStatusBar("Analyzing...")
		return
	}

	parts := []string{time.Now().Format("15:04:05")}
	if m.apiBaseURL != "" {
		parts = append(parts, m.apiBaseURL)
	}
	if m.inboxChan != nil {
		monitor := "Watching"
		if m.isInboxDone {
			monitor = "Monitor Off"
		}
		parts = append(parts, fmt.Sprintf("%s %d emails", monitor, len(m.allEmails)))
	}

	var keyHints string
	switch m.currentView {
	case viewInbox:
		keyHints = hint(m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Ignore, m.keys.Back, m.keys.Quit)
	default:
		bindings := []key.Binding{m.keys.Scan, m.keys.Clear, m.keys.Health}
		if m.inboxChan != nil {
			bindings = append(bindings, m.keys.Inbox)
		}
		keyHints = hint(append(bindings, m.keys.Quit)...)
	}
	m.updateStatusBar(" " + strings.Join(parts, " | ") + " | " + keyHints)
}

func (m Model) getNumItemsThatFitInList() int {
	h := m.height - 1 - lipgloss.Height(EmailListTitleStyle.Render(" "))
	if h < 0 {
		return 0
	}
	return h / emailListItemHeight
}

func (m *Model) ensureSelectedVisible() {
	if len(m.allEmails) == 0 {
		m.viewportTopLine = 0
		return
	}

	itemsThatFit := m.getNumItemsThatFitInList()
	if itemsThatFit <= 0 {
		m.viewportTopLine = m.selectedIdx
		return
	}

	if m.selectedIdx < m.viewportTopLine {
		m.viewportTopLine = m.selectedIdx
	} else if m.selectedIdx >= m.viewportTopLine+itemsThatFit {
		m.viewportTopLine = m.selectedIdx - itemsThatFit + 1
	}

	maxTop := len(m.allEmails) - itemsThatFit
	if maxTop < 0 {
		maxTop = 0
	}
	m.viewportTopLine = max(0, min(m.viewportTopLine, maxTop))
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing terminal size..."
	}

	contentHeight := max(m.height-1, 0)
	var mainUIView string
	switch m.currentView {
	case viewInbox:
		listWidth := max(int(float64(m.width)*0.35), minListPaneWidth)
		if listWidth > m.width-minPreviewPaneWidth && m.width > minPreviewPaneWidth {
			listWidth = m.width - minPreviewPaneWidth
		}
		listWidth = max(0, min(listWidth, m.width))
		previewWidth := m.width - listWidth
		if m.width < minListPaneWidth+minPreviewPaneWidth {
			listWidth, previewWidth = m.width, 0
		}
		mainUIView = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderEmailList(listWidth, contentHeight),
			m.renderPreviewPane(previewWidth, contentHeight))
	default:
		mainUIView = m.renderScanner(m.width - AppStyle.GetHorizontalFrameSize())
	}

	return AppStyle.Render(lipgloss.JoinVertical(lipgloss.Left, mainUIView, m.renderStatusBar()))
}

func (m Model) renderScanner(width int) string {
	sections := []string{
		TitleStyle.Render("Veil") + " " + SubtitleStyle.Render("Scan your email for spam and phishing"),
		"",
	}

	box := InputBoxStyle
	if m.state.IsLoading {
		box = InputBusyBoxStyle
	}
	sections = append(sections, box.Render(m.input.View()))

	counter := fmt.Sprintf("%d characters", len([]rune(m.state.InputText)))
	examples := hint(m.keys.SafeExample, m.keys.SpamExample)
	gap := max(width-lipgloss.Width(counter)-lipgloss.Width(examples), 1)
	sections = append(sections, HintStyle.Render(counter+strings.Repeat(" ", gap)+examples))

	var buttons string
	switch {
	case m.state.IsLoading:
		buttons = DisabledButton.Render(m.spinner.View() + " Analyzing...")
	case strings.TrimSpace(m.state.InputText) == "":
		buttons = DisabledButton.Render("Scan Email")
	default:
		buttons = ButtonStyle.Render("Scan Email")
	}
	if m.state.InputText != "" && !m.state.IsLoading {
		buttons += " " + SecondaryButton.Render("Clear")
	}
	sections = append(sections, "", buttons)

	if m.state.Error != "" {
		sections = append(sections, RenderError(m.state.Error, width))
	}
	if m.state.Result != nil {
		sections = append(sections, RenderResult(*m.state.Result, width))
	}

	switch {
	case m.healthErr != "":
		sections = append(sections, "", HintStyle.Render("Backend: ")+ErrorTextStyle.Render(m.healthErr))
	case m.health != nil:
		loaded := "model not loaded"
		if m.health.ModelLoaded {
			loaded = "model loaded"
		}
		sections = append(sections, "", HintStyle.Render(fmt.Sprintf("Backend: %s, %s", m.health.Status, loaded)))
	}

	return lipgloss.NewStyle().Height(max(m.height-1, 0)).MaxHeight(max(m.height-1, 0)).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderEmailList(paneWidth, paneHeight int) string {
	title := EmailListTitleStyle.Render("Inbox")
	containerHeight := max(paneHeight-lipgloss.Height(title), 0)
	itemTextWidth := max(paneWidth-EmailListItemStyle.GetHorizontalPadding()-4, 10)

	startIdx := max(0, min(m.viewportTopLine, len(m.allEmails)))
	endIdx := max(startIdx, min(startIdx+containerHeight/emailListItemHeight, len(m.allEmails)))

	var items []string
	if paneWidth > 0 && paneHeight > 0 {
		for i := startIdx; i < endIdx; i++ {
			items = append(items, formatEmailListItem(m.allEmails[i], i == m.selectedIdx, itemTextWidth))
		}
	}
	if len(items) == 0 {
		waiting := "Waiting for messages..."
		if m.isInboxDone {
			waiting = "No messages."
		}
		items = append(items, HintStyle.PaddingLeft(1).Render(waiting))
	}

	return EmailListStyle.Width(paneWidth).Height(paneHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(items, "\n")))
}

func (m Model) renderPreviewPane(paneWidth, paneHeight int) string {
	if paneWidth <= 0 || paneHeight <= 0 {
		return ""
	}
	innerWidth := paneWidth - ContentBoxStyle.GetHorizontalPadding()
	maxContentHeight := max(paneHeight-lipgloss.Height(TitleStyle.Render(" "))-ContentBoxStyle.GetVerticalPadding(), 0)

	email, ok := m.selectedEmail()
	if !ok {
		return ContentBoxStyle.Width(paneWidth).Height(paneHeight).Render(
			lipgloss.JoinVertical(lipgloss.Top, TitleStyle.Render("Preview"),
				lipgloss.NewStyle().Width(innerWidth).Padding(1).Render("No message selected.")))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", HeaderKeyStyle.Render("From:"), HeaderValStyle.Render(truncate(email.From, paneWidth-10)))
	dateStr := "N/A"
	if !email.Date.IsZero() {
		dateStr = email.Date.Local().Format(time.RFC1123)
	}
	fmt.Fprintf(&b, "%s %s\n", HeaderKeyStyle.Render("Date:"), HeaderValStyle.Render(dateStr))
	fmt.Fprintf(&b, "%s %s\n", HeaderKeyStyle.Render("Subject:"), HeaderValStyle.Render(truncate(email.Subject, paneWidth-12)))
	b.WriteString("\n" + strings.Repeat(BoxHorizontal, paneWidth/2))

	body := strings.ReplaceAll(email.Body, "\r\n", "\n")
	if strings.TrimSpace(body) == "" {
		body = email.Snippet
	}
	content := lipgloss.JoinVertical(lipgloss.Left, b.String(), BodyStyle.Render(body))

	title := TitleStyle.Render(fmt.Sprintf("Preview: %s", truncate(email.Subject, paneWidth-(TitleStyle.GetHorizontalPadding()+12))))
	return ContentBoxStyle.Width(paneWidth).Height(paneHeight).Render(
		lipgloss.JoinVertical(lipgloss.Top, title,
			lipgloss.NewStyle().Width(innerWidth).MaxHeight(maxContentHeight).Render(content)))
}

func (m Model) renderStatusBar() string {
	styleToUse := StatusBarNormalStyle
	if m.statusIsError {
		styleToUse = StatusBarErrorStyle
	} else if m.statusIsTemp {
		styleToUse = StatusBarSuccessStyle
	}
	width := m.width - AppStyle.GetHorizontalFrameSize()
	return styleToUse.Width(width).Render(truncate(m.statusBarText, width))
}
