package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/bassamadnan/veil/api"
	"github.com/bassamadnan/veil/gmail"
	"github.com/bassamadnan/veil/scanner"
)

const (
	PageScanner = "scanner"
	PageInbox   = "inbox"
)

// Index of the scan button in the scan form.
const buttonScan = 0

var labelTagColors = map[api.Label]string{
	api.LabelSafe:     "green",
	api.LabelSpam:     "orange",
	api.LabelPhishing: "red",
}

// ScanForm is the email text area with its action buttons.
type ScanForm struct {
	*tview.Flex
	input   *tview.TextArea
	counter *tview.TextView
	buttons *tview.Form
}

func NewScanForm(onScan, onClear, onSafe, onSpam func()) *ScanForm {
	input := tview.NewTextArea().SetPlaceholder("Paste your email content here...")
	input.SetBorder(true).SetTitle("Email Content")
	input.SetBackgroundColor(tcell.ColorDefault)

	counter := tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignRight)
	counter.SetBackgroundColor(tcell.ColorDefault)

	buttons := tview.NewForm().
		AddButton("Scan Email", onScan).
		AddButton("Clear", onClear).
		AddButton("Load Safe Example", onSafe).
		AddButton("Load Spam Example", onSpam).
		SetButtonsAlign(tview.AlignLeft)
	buttons.SetBackgroundColor(tcell.ColorDefault)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(input, 0, 1, true).
		AddItem(counter, 1, 0, false).
		AddItem(buttons, 3, 0, false)

	return &ScanForm{Flex: flex, input: input, counter: counter, buttons: buttons}
}

// Sync brings the widgets in line with s without firing change events
// for text that is already shown.
func (f *ScanForm) Sync(s scanner.State) {
	if f.input.GetText() != s.InputText {
		f.input.SetText(s.InputText, true)
	}
	f.counter.SetText(fmt.Sprintf("[::d]%d characters[::-]", len([]rune(s.InputText))))
	label := "Scan Email"
	if s.IsLoading {
		label = "Analyzing..."
	}
	f.buttons.GetButton(buttonScan).SetLabel(label)
}

// ResultView shows either the error or the classification.
type ResultView struct {
	*tview.TextView
}

func NewResultView() *ResultView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	tv.SetBackgroundColor(tcell.ColorDefault)
	tv.SetBorder(true).SetTitle("Result")
	return &ResultView{TextView: tv}
}

func (rv *ResultView) Sync(s scanner.State) {
	switch {
	case s.Error != "":
		rv.SetText("[red::b]" + tview.Escape(s.Error) + "[-::-]")
		rv.SetBorderColor(tcell.ColorRed)
	case s.Result != nil:
		rv.SetText(resultText(*s.Result, 40))
		rv.SetBorderColor(tcell.GetColor(labelTagColor(s.Result.Prediction)))
	case s.IsLoading:
		rv.SetText("[::d]Analyzing...[::-]")
		rv.SetBorderColor(tcell.ColorDefault)
	default:
		rv.SetText("")
		rv.SetBorderColor(tcell.ColorDefault)
	}
}

func labelTagColor(l api.Label) string {
	if c, ok := labelTagColors[l]; ok {
		return c
	}
	return "white"
}

// resultText renders a prediction with tview colour tags.
func resultText(r api.PredictionResponse, barWidth int) string {
	color := labelTagColor(r.Prediction)
	pct := max(0, min(r.ConfidencePercent(), 100))
	filled := pct * barWidth / 100

	var b strings.Builder
	fmt.Fprintf(&b, "[%s::b]%s[-::-]  [%s]%d%% confident[-]\n\n", color, r.Prediction, color, r.ConfidencePercent())
	fmt.Fprintf(&b, "[%s]%s[-]\n\n", color, tview.Escape(r.Message))
	fmt.Fprintf(&b, "[::d]Confidence Score[::-]  [::b]%.4f[::-]\n", r.Confidence)
	fmt.Fprintf(&b, "[%s]%s[-][gray]%s[-]", color, strings.Repeat(BarFilled, filled), strings.Repeat(BarEmpty, barWidth-filled))
	return b.String()
}

// EmailListView lists inbox messages newest first.
type EmailListView struct {
	*tview.List
	emails []gmail.Message
}

func NewEmailListView(onChange, onSelect func(gmail.Message)) *EmailListView {
	list := tview.NewList().
		ShowSecondaryText(true).
		SetSecondaryTextColor(tcell.ColorDimGray)
	list.SetBackgroundColor(tcell.ColorDefault)
	list.SetSelectedStyle(tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorSteelBlue).
		Attributes(tcell.AttrBold))
	list.SetBorder(true).SetTitle("Inbox")

	elv := &EmailListView{List: list}
	list.SetChangedFunc(func(index int, _ string, _ string, _ rune) {
		if index >= 0 && index < len(elv.emails) {
			onChange(elv.emails[index])
		}
	})
	list.SetSelectedFunc(func(index int, _ string, _ string, _ rune) {
		if index >= 0 && index < len(elv.emails) {
			onSelect(elv.emails[index])
		}
	})
	return elv
}

func (elv *EmailListView) AddEmail(email gmail.Message) {
	elv.emails = append(elv.emails, email)
	sort.SliceStable(elv.emails, func(i, j int) bool {
		return elv.emails[i].InternalDate > elv.emails[j].InternalDate
	})
	elv.updateListItems()
}

// Selected returns the highlighted message.
func (elv *EmailListView) Selected() (gmail.Message, bool) {
	idx := elv.List.GetCurrentItem()
	if idx < 0 || idx >= len(elv.emails) {
		return gmail.Message{}, false
	}
	return elv.emails[idx], true
}

// DropSender removes every message from sender and reports how many went.
func (elv *EmailListView) DropSender(sender string) int {
	kept := elv.emails[:0]
	for _, e := range elv.emails {
		if !strings.EqualFold(e.SenderAddress(), sender) {
			kept = append(kept, e)
		}
	}
	dropped := len(elv.emails) - len(kept)
	elv.emails = kept
	elv.updateListItems()
	return dropped
}

func (elv *EmailListView) Len() int { return len(elv.emails) }

func (elv *EmailListView) updateListItems() {
	currentSelection := elv.List.GetCurrentItem()
	elv.List.Clear()
	for _, email := range elv.emails {
		subject := email.Subject
		if subject == "" {
			subject = "(No Subject)"
		}
		from := email.SenderName()
		if from == "" {
			from = email.SenderAddress()
		}
		mainText := "[white]" + tview.Escape(truncate(subject, 40))
		secondaryText := fmt.Sprintf("[::d]%s · %s", tview.Escape(truncate(from, 20)), formatEmailDate(email.Date))
		elv.List.AddItem(mainText, secondaryText, 0, nil)
	}
	if n := elv.List.GetItemCount(); n > 0 {
		elv.List.SetCurrentItem(max(0, min(currentSelection, n-1)))
	}
}

func NewPreviewPane() *tview.TextView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	tv.SetBackgroundColor(tcell.ColorDefault)
	tv.SetBorder(true).SetTitle("Preview")
	tv.SetText("[::d]No message selected.\n\nEnter scans the message, x ignores its sender, Esc goes back.[::-]")
	return tv
}

// previewText is the header block and body of an inbox message.
func previewText(email gmail.Message) string {
	dateStr := "N/A"
	if !email.Date.IsZero() {
		dateStr = email.Date.Local().Format(time.RFC1123)
	}
	body := strings.ReplaceAll(email.Body, "\r\n", "\n")
	if strings.TrimSpace(body) == "" {
		body = email.Snippet
	}
	return fmt.Sprintf("[::b]From:[::-] %s\n[::b]Date:[::-] %s\n[::b]Subject:[::-] %s\n\n%s\n\n%s",
		tview.Escape(email.From), dateStr, tview.Escape(email.Subject), strings.Repeat(BoxHorizontal, 60), tview.Escape(body))
}
