package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/inboxgraph/backend/pkg/mail"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Client fetches messages from the Gmail REST API on behalf of a single
// user, authenticated by an OAuth2 access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClientParams contains configuration for creating a gmail Client.
// AccessToken is the user's OAuth2 bearer token. BaseURL overrides the
// Gmail API endpoint, mainly for tests; empty means the production API.
type NewClientParams struct {
	AccessToken string
	BaseURL     string
}

// NewClient creates a Gmail API client around the given access token.
func NewClient(ctx context.Context, params NewClientParams) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: params.AccessToken})

	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: oauth2.NewClient(ctx, src),
	}
}

// Gmail returns internalDate as a decimal string of epoch milliseconds.
type wireMessage struct {
	ID           string           `json:"id"`
	ThreadID     string           `json:"threadId"`
	Snippet      string           `json:"snippet"`
	InternalDate string           `json:"internalDate"`
	Payload      mail.MessagePart `json:"payload"`
}

func (m wireMessage) toRaw() mail.RawMessage {
	internal, _ := strconv.ParseInt(m.InternalDate, 10, 64)
	return mail.RawMessage{
		ID:           m.ID,
		ThreadID:     m.ThreadID,
		Snippet:      m.Snippet,
		InternalDate: internal,
		Payload:      m.Payload,
	}
}

type listResponse struct {
	Messages      []wireMessage `json:"messages"`
	NextPageToken string        `json:"nextPageToken"`
}

type threadResponse struct {
	ID       string        `json:"id"`
	Messages []wireMessage `json:"messages"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return mail.ErrUnauthenticated
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return fmt.Errorf("gmail api: %s returned %d: %s", path, res.StatusCode, string(body))
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// ListMessages returns one page of message stubs matching the query.
// Only IDs and thread IDs are populated; use GetMessage for full content.
func (c *Client) ListMessages(ctx context.Context, q mail.Query) (mail.Page, error) {
	query := url.Values{}

	search := ""
	if q.After != "" {
		search = "after:" + q.After
	}
	if q.Before != "" {
		if search != "" {
			search += " "
		}
		search += "before:" + q.Before
	}
	if search != "" {
		query.Set("q", search)
	}
	if q.PageSize > 0 {
		query.Set("maxResults", strconv.Itoa(q.PageSize))
	}
	if q.PageToken != "" {
		query.Set("pageToken", q.PageToken)
	}

	var res listResponse
	if err := c.get(ctx, "/users/me/messages", query, &res); err != nil {
		return mail.Page{}, err
	}

	page := mail.Page{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.Messages = append(page.Messages, m.toRaw())
	}
	return page, nil
}

// GetMessage fetches the full message. When the message belongs to a thread,
// the whole conversation is fetched and attached so downstream analysis can
// see the full exchange.
func (c *Client) GetMessage(ctx context.Context, id string) (mail.RawMessage, error) {
	query := url.Values{}
	query.Set("format", "full")

	var res wireMessage
	if err := c.get(ctx, "/users/me/messages/"+url.PathEscape(id), query, &res); err != nil {
		return mail.RawMessage{}, err
	}

	msg := res.toRaw()
	if msg.ThreadID != "" {
		thread, err := c.GetThread(ctx, msg.ThreadID)
		if err != nil {
			return mail.RawMessage{}, err
		}
		msg.Thread = &thread
	}
	return msg, nil
}

// GetThread fetches a full conversation by thread ID.
func (c *Client) GetThread(ctx context.Context, id string) (mail.Thread, error) {
	query := url.Values{}
	query.Set("format", "full")

	var res threadResponse
	if err := c.get(ctx, "/users/me/threads/"+url.PathEscape(id), query, &res); err != nil {
		return mail.Thread{}, err
	}

	thread := mail.Thread{ID: res.ID}
	for _, m := range res.Messages {
		thread.Messages = append(thread.Messages, m.toRaw())
	}
	return thread, nil
}
