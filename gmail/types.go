package gmail

import (
	"strings"
	"time"
)

// Message holds what the scanner needs from a Gmail message.
type Message struct {
	ID           string
	From         string
	To           string
	Cc           string
	Date         time.Time
	Subject      string
	Snippet      string
	Body         string // first text/plain part
	InternalDate int64  // ms since epoch, for sorting
}

// ScanText is the text submitted for classification: the subject line
// followed by the body, or the snippet when the message has no plain body.
func (m Message) ScanText() string {
	body := strings.TrimSpace(strings.ReplaceAll(m.Body, "\r\n", "\n"))
	if body == "" {
		body = strings.TrimSpace(m.Snippet)
	}
	if m.Subject == "" {
		return body
	}
	if body == "" {
		return m.Subject
	}
	return m.Subject + "\n\n" + body
}

// SenderName is the display part of From, without the address.
func (m Message) SenderName() string {
	from := m.From
	if idx := strings.Index(from, "<"); idx > 0 {
		from = strings.TrimSpace(from[:idx])
	}
	return strings.Trim(from, `"`)
}

// SenderAddress is the bare address of From.
func (m Message) SenderAddress() string {
	from := m.From
	start, end := strings.Index(from, "<"), strings.LastIndex(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}
