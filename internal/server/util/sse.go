package util

import (
	"encoding/json"
	"fmt"

	"github.com/labstack/echo/v4"
)

// SSEEnvelope is the wire shape of one streamed pipeline event.
type SSEEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PrepareSSE sets the response headers for a server-sent-event stream and
// flushes them so clients see the stream open before the first event.
func PrepareSSE(c echo.Context) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(200)
	c.Response().Flush()
}

// WriteSSEEvent writes one event to the stream and flushes it. The data
// payload is the {type, data} envelope consumers key their updates on.
func WriteSSEEvent(c echo.Context, event string, data any) error {
	payload, err := json.Marshal(SSEEnvelope{Type: event, Data: data})
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(c.Response(), "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload); err != nil {
		return err
	}

	c.Response().Flush()
	return nil
}
