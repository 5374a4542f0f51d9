package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/bassamadnan/veil/config"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

// FormApp is the tview rendition of the scanner: a text area, four buttons
// and a result panel, plus an inbox page when Gmail is enabled.
type FormApp struct {
	*tview.Application
	rootPages   *tview.Pages
	scanForm    *ScanForm
	resultView  *ResultView
	statusBar   *tview.TextView
	emailList   *EmailListView
	previewPane *tview.TextView

	ctx        context.Context
	backend    Backend
	filters    *config.FilterManager
	emailChan  <-chan gmail.Message
	logger     *zap.Logger
	apiBaseURL string

	// state is only touched on the UI goroutine.
	state        scanner.State
	tempSeq      int
	statusIsTemp bool
}

func NewFormApp(ctx context.Context, opts Options) *FormApp {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &FormApp{
		Application: tview.NewApplication(),
		ctx:         ctx,
		backend:     opts.Backend,
		filters:     opts.Filters,
		emailChan:   opts.Inbox,
		logger:      logger,
		apiBaseURL:  opts.APIBaseURL,
		state:       scanner.New(),
	}

	a.scanForm = NewScanForm(a.submit, a.clear,
		func() { a.loadExample(scanner.ExampleSafe) },
		func() { a.loadExample(scanner.ExampleSpam) })
	a.scanForm.input.SetChangedFunc(func() {
		a.setInput(a.scanForm.input.GetText())
	})
	a.scanForm.input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.state.IsLoading {
			return nil
		}
		return event
	})
	a.resultView = NewResultView()

	a.statusBar = tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignLeft)
	a.statusBar.SetBackgroundColor(tcell.ColorDefault)

	scannerPage := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.scanForm, 0, 3, true).
		AddItem(a.resultView, 0, 2, false)
	scannerPage.SetBorder(true).SetTitle(" Veil: Scan Your Email ")

	a.rootPages = tview.NewPages().AddPage(PageScanner, scannerPage, true, true)
	if a.emailChan != nil {
		a.previewPane = NewPreviewPane()
		a.emailList = NewEmailListView(
			func(email gmail.Message) { a.previewPane.SetText(previewText(email)).ScrollToBeginning() },
			a.loadEmail)
		a.emailList.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			if event.Rune() == 'x' {
				a.ignoreSelectedSender()
				return nil
			}
			return event
		})
		inboxPage := tview.NewFlex().SetDirection(tview.FlexColumn).
			AddItem(a.emailList, 0, 1, true).
			AddItem(a.previewPane, 0, 2, false)
		a.rootPages.AddPage(PageInbox, inboxPage, true, false)
	}

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.rootPages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.Application.SetRoot(layout, true).EnableMouse(true)
	a.setGlobalKeybindings()
	a.render()
	a.setStandardStatusMessage()
	return a
}

func (a *FormApp) Run() error {
	if a.emailChan != nil {
		go a.processIncomingEmails()
	}
	go a.updateStatusTimer()
	go a.checkHealth()
	a.Application.SetFocus(a.scanForm.input)
	return a.Application.Run()
}

func (a *FormApp) setGlobalKeybindings() {
	a.Application.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.rootPages.GetFrontPage()
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyCtrlS:
			a.submit()
			return nil
		case tcell.KeyCtrlR:
			a.clear()
			return nil
		case tcell.KeyCtrlO:
			a.loadExample(scanner.ExampleSafe)
			return nil
		case tcell.KeyCtrlP:
			a.loadExample(scanner.ExampleSpam)
			return nil
		case tcell.KeyCtrlT:
			go a.checkHealth()
			return nil
		case tcell.KeyCtrlG:
			if a.emailList != nil {
				a.rootPages.SwitchToPage(PageInbox)
				a.Application.SetFocus(a.emailList)
			}
			return nil
		case tcell.KeyEscape:
			if page == PageInbox {
				a.showScanner()
				return nil
			}
		case tcell.KeyTab:
			if page == PageScanner {
				if a.scanForm.input.HasFocus() {
					a.Application.SetFocus(a.scanForm.buttons)
				} else {
					a.Application.SetFocus(a.scanForm.input)
				}
				return nil
			}
		}
		return event
	})
}

func (a *FormApp) setInput(text string) {
	if text == a.state.InputText {
		return
	}
	a.state = a.state.SetInput(text)
	a.render()
}

// beginSubmit applies Submit and returns the task to run, if any.
func (a *FormApp) beginSubmit() *scanner.Task {
	next, task := a.state.Submit()
	a.state = next
	a.render()
	return task
}

func (a *FormApp) submit() {
	task := a.beginSubmit()
	if task == nil {
		return
	}
	a.logger.Debug("submitting email", zap.Uint64("ticket", task.Ticket))
	go func() {
		outcome := task.Run(a.ctx, a.backend)
		a.QueueUpdateDraw(func() { a.resolve(outcome) })
	}()
}

func (a *FormApp) resolve(outcome scanner.Outcome) {
	before := a.state
	a.state = a.state.Resolve(outcome)
	if a.state == before {
		a.logger.Debug("discarded stale prediction", zap.Uint64("ticket", outcome.Ticket))
		return
	}
	a.render()
	if r := a.state.Result; r != nil {
		a.showTemporaryStatus(fmt.Sprintf("[green]Scan complete: %s (%d%%)[-]", r.Prediction, r.ConfidencePercent()))
	}
}

func (a *FormApp) clear() {
	if a.state.IsLoading {
		return
	}
	a.state = a.state.Clear()
	a.render()
}

func (a *FormApp) loadExample(kind scanner.ExampleKind) {
	if a.state.IsLoading {
		return
	}
	next, err := a.state.LoadExample(kind)
	if err != nil {
		a.logger.Warn("unable to load example", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	a.state = next
	a.render()
}

func (a *FormApp) loadEmail(email gmail.Message) {
	if a.state.IsLoading {
		a.showTemporaryStatus("[yellow]A scan is already running[-]")
		return
	}
	a.state = a.state.LoadText(email.ScanText())
	a.render()
	a.showScanner()
	a.showTemporaryStatus(fmt.Sprintf("[green]Loaded: %s[-]", tview.Escape(truncate(email.Subject, 30))))
}

func (a *FormApp) ignoreSelectedSender() {
	email, ok := a.emailList.Selected()
	if !ok || a.filters == nil {
		return
	}
	sender := email.SenderAddress()
	if err := a.filters.AddIgnoreSender(sender); err != nil {
		a.logger.Error("unable to save filter", zap.String("sender", sender), zap.Error(err))
		a.showTemporaryStatus(fmt.Sprintf("[red]Error: %s[-]", tview.Escape(err.Error())))
		return
	}
	n := a.emailList.DropSender(sender)
	a.showTemporaryStatus(fmt.Sprintf("[green]Ignoring %s (%d removed)[-]", tview.Escape(sender), n))
}

func (a *FormApp) showScanner() {
	a.rootPages.SwitchToPage(PageScanner)
	a.Application.SetFocus(a.scanForm.input)
}

func (a *FormApp) render() {
	a.scanForm.Sync(a.state)
	a.resultView.Sync(a.state)
}

func (a *FormApp) checkHealth() {
	h, err := a.backend.CheckHealth(a.ctx)
	a.QueueUpdateDraw(func() {
		if err != nil {
			a.showTemporaryStatus("[red]" + tview.Escape(scanner.ErrorMessage(err)) + "[-]")
			return
		}
		loaded := "model not loaded"
		if h.ModelLoaded {
			loaded = "model loaded"
		}
		a.showTemporaryStatus(fmt.Sprintf("[green]Backend: %s, %s[-]", tview.Escape(h.Status), loaded))
	})
}

func (a *FormApp) processIncomingEmails() {
	for email := range a.emailChan {
		a.QueueUpdateDraw(func() {
			a.emailList.AddEmail(email)
			a.showTemporaryStatus(fmt.Sprintf("[green]New: %s[-]", tview.Escape(truncate(email.Subject, 25))))
		})
	}
	a.logger.Info("inbox monitor stopped")
}

// showTemporaryStatus shows text for a few seconds unless replaced sooner.
func (a *FormApp) showTemporaryStatus(text string) {
	a.tempSeq++
	seq := a.tempSeq
	a.statusIsTemp = true
	a.statusBar.SetText(" " + text)
	time.AfterFunc(tempStatusDuration, func() {
		a.QueueUpdateDraw(func() {
			if a.tempSeq == seq {
				a.statusIsTemp = false
				a.setStandardStatusMessage()
			}
		})
	})
}

func (a *FormApp) updateStatusTimer() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.QueueUpdateDraw(a.setStandardStatusMessage)
		}
	}
}

// setStandardStatusMessage redraws the idle status line; it leaves a
// temporary message in place until its timer fires.
func (a *FormApp) setStandardStatusMessage() {
	if a.statusIsTemp {
		return
	}
	status := fmt.Sprintf(" [::d]%s | %s", time.Now().Format("15:04:05"), a.apiBaseURL)
	if a.emailList != nil {
		status += fmt.Sprintf(" | %d emails", a.emailList.Len())
	}
	status += " | [::b]Ctrl+S[::-]:Scan [::b]Ctrl+R[::-]:Clear [::b]Tab[::-]:Buttons [::b]Ctrl+T[::-]:Health"
	if a.emailList != nil {
		status += " [::b]Ctrl+G[::-]:Inbox [::b]Esc[::-]:Back"
	}
	a.statusBar.SetText(status + " [::b]Ctrl+C[::-]:Quit")
}
