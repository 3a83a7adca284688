package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/replaysMike/Binner-sub003/internal/bom/events"
)

func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := events.NewHub(zap.NewNop())
	h := NewEventsHandler(hub)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "u1") })
	r.GET("/events", h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if name, _ := readEvent(t, reader); name != events.TypeConnected {
		t.Fatalf("first event = %q, want connected", name)
	}

	hub.Publish("u2", events.Change{ProjectID: 1, Action: "add_part"})
	hub.Publish("u1", events.Change{ProjectID: 7, Action: "produce"})
	name, data := readEvent(t, reader)
	if name != events.TypeBomUpdate {
		t.Fatalf("event = %q, want bom_update", name)
	}
	if !strings.Contains(data, `"projectId":7`) || !strings.Contains(data, `"action":"produce"`) {
		t.Errorf("unexpected data %s", data)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream was not unsubscribed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
