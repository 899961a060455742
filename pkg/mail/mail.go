package mail

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned by providers when the mail credential is
// missing, expired, or rejected by the upstream service.
var ErrUnauthenticated = errors.New("mail: not authenticated")

// Header is a single MIME header of a message part.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody holds the base64url-encoded content of a message part.
type PartBody struct {
	Size int    `json:"size,omitempty"`
	Data string `json:"data,omitempty"`
}

// MessagePart is a node in a message's MIME tree. Multipart messages carry
// their children in Parts; leaf parts carry content in Body.
type MessagePart struct {
	PartID   string        `json:"partId,omitempty"`
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename,omitempty"`
	Headers  []Header      `json:"headers,omitempty"`
	Body     PartBody      `json:"body"`
	Parts    []MessagePart `json:"parts,omitempty"`
}

// HeaderValue returns the value of the first header with the given name,
// compared case-insensitively, or "" if absent.
func (p MessagePart) HeaderValue(name string) string {
	for _, h := range p.Headers {
		if equalFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// RawMessage is a provider message as fetched from the mail API, before
// normalization. InternalDate is milliseconds since the Unix epoch.
// Thread is populated when the provider returned the full conversation
// the message belongs to.
type RawMessage struct {
	ID           string      `json:"id"`
	ThreadID     string      `json:"threadId,omitempty"`
	Snippet      string      `json:"snippet,omitempty"`
	InternalDate int64       `json:"internalDate,omitempty"`
	Payload      MessagePart `json:"payload"`
	Thread       *Thread     `json:"thread,omitempty"`
}

// Thread is a conversation containing one or more messages in order.
type Thread struct {
	ID       string       `json:"id"`
	Messages []RawMessage `json:"messages"`
}

// Query selects which messages to fetch from a provider.
// After and Before are date filters in YYYY/MM/DD form; empty means
// unbounded. PageSize limits results per page; 0 uses the provider default.
type Query struct {
	After     string
	Before    string
	PageToken string
	PageSize  int
}

// Page is one page of fetched messages plus the token for the next page.
// An empty NextPageToken means there are no further pages.
type Page struct {
	Messages      []RawMessage
	NextPageToken string
}

// Provider fetches messages from a mail backend.
type Provider interface {
	// ListMessages returns one page of messages matching the query.
	ListMessages(ctx context.Context, q Query) (Page, error)
	// GetMessage fetches the full message, including its MIME payload.
	GetMessage(ctx context.Context, id string) (RawMessage, error)
	// GetThread fetches the full conversation a message belongs to.
	GetThread(ctx context.Context, id string) (Thread, error)
}

// FetchAll pages through the provider until the query is exhausted and
// returns the full messages, each fetched individually so the MIME payload
// is complete. The maxMessages limit stops fetching early when positive.
func FetchAll(ctx context.Context, p Provider, q Query, maxMessages int) ([]RawMessage, error) {
	var out []RawMessage
	for {
		page, err := p.ListMessages(ctx, q)
		if err != nil {
			return nil, err
		}

		for _, stub := range page.Messages {
			if maxMessages > 0 && len(out) >= maxMessages {
				return out, nil
			}
			msg, err := p.GetMessage(ctx, stub.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		q.PageToken = page.NextPageToken
	}
}
