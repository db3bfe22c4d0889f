package manage

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tstromberg/flickrset/pkg/flickrset"
)

func readFrame(t *testing.T, c *Client) (flickrset.Snapshot, bool) {
	t.Helper()
	select {
	case bs, ok := <-c.send:
		if !ok {
			t.Fatal("client was closed")
		}
		var m Message
		if err := json.Unmarshal(bs, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if m.Type != MsgState || m.State == nil {
			t.Fatalf("unexpected message: %s", bs)
		}
		return *m.State, true
	case <-time.After(200 * time.Millisecond):
		return flickrset.Snapshot{}, false
	}
}

func TestHubSendsNewestOnRegister(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	h.Publish(flickrset.Snapshot{Seq: 1, Filter: "a"})
	h.Publish(flickrset.Snapshot{Seq: 3, Filter: "c"})
	h.Publish(flickrset.Snapshot{Seq: 2, Filter: "b"})

	c := &Client{hub: h, send: make(chan []byte, 16)}
	h.register <- c

	s, ok := readFrame(t, c)
	if !ok {
		t.Fatal("no state sent on register")
	}
	if s.Seq != 3 || s.Filter != "c" {
		t.Errorf("first state = seq %d filter %q, want seq 3 filter c", s.Seq, s.Filter)
	}
	if s, ok := readFrame(t, c); ok {
		t.Errorf("unexpected stale state after register: seq %d filter %q", s.Seq, s.Filter)
	}
}

func TestHubBurstEndsOnNewest(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := &Client{hub: h, send: make(chan []byte, 16)}
	h.register <- c

	const n = 1000
	go func() {
		for i := uint64(1); i <= n; i++ {
			h.Publish(flickrset.Snapshot{Seq: i})
		}
	}()

	var last uint64
	deadline := time.Now().Add(5 * time.Second)
	for last != n && time.Now().Before(deadline) {
		s, ok := readFrame(t, c)
		if !ok {
			continue
		}
		if s.Seq <= last {
			t.Fatalf("state %d arrived after %d", s.Seq, last)
		}
		last = s.Seq
	}
	if last != n {
		t.Errorf("last state = %d, want %d", last, n)
	}
}

func TestWebsocketSeesChangeMadeBeforeConnect(t *testing.T) {
	s, v := testServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	v.SetFilter("dog")

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var m Message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if m.State == nil || m.State.Filter != "dog" || len(m.State.Photos) != 1 {
		t.Errorf("initial state = %+v, want the dog filter", m.State)
	}
}
