package gmail

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/bassamadnan/veil/config"
)

const (
	user = "me"
	// Inbox only, drafts excluded; covers every inbox category.
	inboxQuery = "in:inbox -in:draft"
)

// Client reads inbox messages for the scanner.
type Client struct {
	srv     *gmail.Service
	filters *config.FilterManager
	logger  *zap.Logger
}

// AuthOptions locates the OAuth client secret and the cached token.
type AuthOptions struct {
	CredentialsFile string
	TokenFile       string
	// Prompt receives the consent URL and must return the pasted code.
	// Used only when no cached token exists.
	Prompt func(authURL string) (string, error)
}

// NewClient authorises against Gmail with read-only scope. When no token is
// cached the consent flow runs through opts.Prompt, so call this before the
// terminal UI takes over the screen.
func NewClient(ctx context.Context, opts AuthOptions, filters *config.FilterManager, logger *zap.Logger) (*Client, error) {
	b, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	httpClient, err := oauthClient(ctx, oauthConfig, opts, logger)
	if err != nil {
		return nil, err
	}
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return NewClientWithService(srv, filters, logger), nil
}

// NewClientWithService wraps an already configured service.
func NewClientWithService(srv *gmail.Service, filters *config.FilterManager, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{srv: srv, filters: filters, logger: logger}
}

func oauthClient(ctx context.Context, cfg *oauth2.Config, opts AuthOptions, logger *zap.Logger) (*http.Client, error) {
	tok, err := tokenFromFile(opts.TokenFile)
	if err != nil {
		if opts.Prompt == nil {
			return nil, fmt.Errorf("no cached token at %s and no way to prompt for one: %w", opts.TokenFile, err)
		}
		authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
		code, err := opts.Prompt(authURL)
		if err != nil {
			return nil, fmt.Errorf("unable to read authorization code: %w", err)
		}
		tok, err = cfg.Exchange(ctx, strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
		}
		if err := saveToken(opts.TokenFile, tok); err != nil {
			return nil, err
		}
		logger.Info("saved gmail token", zap.String("path", opts.TokenFile))
	}
	return cfg.Client(ctx, tok), nil
}

// TerminalPrompt asks for the authorization code on w/r.
func TerminalPrompt(w io.Writer, r io.Reader) func(string) (string, error) {
	return func(authURL string) (string, error) {
		fmt.Fprintf(w, "Go to the following link in your browser then type the "+
			"authorization code: \n%v\n", authURL)
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to encode oauth token: %w", err)
	}
	return nil
}

// Recent returns up to count inbox messages, newest first, with filtered
// messages removed.
func (c *Client) Recent(ctx context.Context, count int64) ([]Message, error) {
	refs, err := c.list(ctx, count)
	if err != nil {
		return nil, err
	}
	var out []Message
	for _, ref := range refs {
		msg, err := c.fetch(ctx, ref.Id)
		if err != nil {
			c.logger.Warn("unable to retrieve message", zap.String("id", ref.Id), zap.Error(err))
			continue
		}
		if c.ignored(msg) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Monitor sends an initial batch of initialCount messages (oldest first) and
// then polls every interval for newer ones. It closes out when ctx ends.
func (c *Client) Monitor(ctx context.Context, out chan<- Message, initialCount, periodicCount int64, initialDelay, interval time.Duration) {
	defer close(out)

	select {
	case <-time.After(initialDelay):
	case <-ctx.Done():
		return
	}

	var lastMessageID string
	c.logger.Info("gmail monitor: initial fetch", zap.Int64("count", initialCount))
	initial, err := c.list(ctx, initialCount)
	if err != nil {
		c.logger.Error("gmail monitor: unable to retrieve initial list", zap.Error(err))
	} else if len(initial) > 0 {
		lastMessageID = initial[0].Id
		if !c.deliver(ctx, out, initial) {
			return
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("gmail monitor: stopping")
			return
		case <-ticker.C:
			refs, err := c.list(ctx, periodicCount)
			if err != nil {
				c.logger.Warn("gmail monitor: error checking for new messages", zap.Error(err))
				continue
			}
			fresh := newerThan(refs, lastMessageID)
			if len(fresh) == 0 {
				continue
			}
			if lastMessageID != "" && len(fresh) == len(refs) && int64(len(fresh)) == periodicCount {
				c.logger.Warn("gmail monitor: every fetched message is new, some may have been skipped",
					zap.Int("fetched", len(fresh)))
			}
			lastMessageID = refs[0].Id
			if !c.deliver(ctx, out, fresh) {
				return
			}
		}
	}
}

// newerThan returns the refs listed before lastID; with no lastID every ref is new.
func newerThan(refs []*gmail.Message, lastID string) []*gmail.Message {
	if lastID == "" {
		return refs
	}
	var fresh []*gmail.Message
	for _, m := range refs {
		if m.Id == lastID {
			break
		}
		fresh = append(fresh, m)
	}
	return fresh
}

// deliver fetches refs oldest first and sends the unfiltered ones. It
// reports false when ctx ended mid-way.
func (c *Client) deliver(ctx context.Context, out chan<- Message, refs []*gmail.Message) bool {
	for i := len(refs) - 1; i >= 0; i-- {
		msg, err := c.fetch(ctx, refs[i].Id)
		if err != nil {
			c.logger.Warn("gmail monitor: unable to retrieve message", zap.String("id", refs[i].Id), zap.Error(err))
			continue
		}
		if c.ignored(msg) {
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (c *Client) list(ctx context.Context, count int64) ([]*gmail.Message, error) {
	resp, err := c.srv.Users.Messages.List(user).
		MaxResults(count).
		Q(inboxQuery).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}
	return resp.Messages, nil
}

func (c *Client) fetch(ctx context.Context, id string) (Message, error) {
	full, err := c.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return Message{}, err
	}
	return parseMessage(full, c.logger), nil
}

func (c *Client) ignored(msg Message) bool {
	if c.filters == nil {
		return false
	}
	if hit, rule := c.filters.GetFilters().Matches(msg.From, msg.Subject, msg.Body); hit {
		c.logger.Debug("filtered message", zap.String("id", msg.ID), zap.String("rule", rule))
		return true
	}
	return false
}

func parseMessage(msg *gmail.Message, logger *zap.Logger) Message {
	email := Message{
		ID:           msg.Id,
		Snippet:      msg.Snippet,
		InternalDate: msg.InternalDate,
	}
	if msg.Payload == nil {
		return email
	}
	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			email.Subject = header.Value
		case "From":
			email.From = header.Value
		case "To":
			email.To = header.Value
		case "Cc":
			email.Cc = header.Value
		case "Date":
			date, err := parseDate(header.Value)
			if err != nil {
				logger.Debug("unparsed date header", zap.String("value", header.Value), zap.Error(err))
			}
			email.Date = date
		}
	}
	if email.Date.IsZero() && msg.InternalDate > 0 {
		email.Date = time.UnixMilli(msg.InternalDate)
	}
	email.Body = plainTextBody(msg.Payload)
	return email
}

var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

// parseDate accepts the Date header variants seen in practice, including a
// trailing "(MST)" zone comment.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if open := strings.LastIndex(value, " ("); open != -1 {
		if end := strings.LastIndex(value, ")"); end > open {
			value = strings.TrimSpace(value[:open] + value[end+1:])
		}
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBody(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/plain") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodeBody handles Gmail's URL-safe base64 with or without padding.
func decodeBody(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
