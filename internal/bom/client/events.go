package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/replaysMike/Binner-sub003/internal/bom/events"
)

// Watch follows GET /api/bom/events and calls fn for every change until ctx
// is done or the server ends the stream. It returns nil when ctx ends it.
func (c *Client) Watch(ctx context.Context, fn func(events.Change)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/bom/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// the stream outlives any per-request timeout
	stream := *c.httpClient
	stream.Timeout = 0
	resp, err := stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("GET /api/bom/events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	err = readEvents(resp.Body, func(name, data string) error {
		if name != events.TypeBomUpdate {
			return nil
		}
		var change events.Change
		if err := json.Unmarshal([]byte(data), &change); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fn(change)
		return nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents splits a text/event-stream body into events. Comment lines are
// skipped and multi-line data is joined with newlines.
func readEvents(r io.Reader, fn func(name, data string) error) error {
	scanner := bufio.NewScanner(r)
	var name string
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 || name != "" {
				if name == "" {
					name = "message"
				}
				if err := fn(name, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			name, data = "", nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
