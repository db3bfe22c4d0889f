package manage

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tstromberg/flickrset/pkg/flickrset"
	"k8s.io/klog/v2"
)

// Message is pushed to every connected browser.
type Message struct {
	Type      string              `json:"type"`
	State     *flickrset.Snapshot `json:"state,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// MsgState carries a full state snapshot.
const MsgState = "state"

// frame is an encoded state message and the snapshot sequence it carries.
type frame struct {
	seq  uint64
	data []byte
}

// Hub fans viewer changes out to websocket clients.
//
// Publish never blocks and never loses the newest state: pending holds the
// newest unsent snapshot and older ones are replaced rather than queued.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	pending *frame
	notify  chan struct{}

	// latest is the newest state sent; only Run touches it.
	latest *frame

	stop     chan struct{}
	stopOnce sync.Once

	upgrader websocket.Upgrader
}

// NewHub creates a new hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    map[*Client]bool{},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notify:     make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			// Anything published before the client arrived is sent to it first.
			h.flush()
			h.clients[c] = true
			if h.latest != nil {
				c.send <- h.latest.data
			}
			klog.V(1).Infof("websocket client connected (%d total)", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				klog.V(1).Infof("websocket client left (%d total)", len(h.clients))
			}

		case <-h.notify:
			h.flush()

		case <-h.stop:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		}
	}
}

// flush sends the pending state to every client, unless it is older than what they have.
func (h *Hub) flush() {
	h.mu.Lock()
	f := h.pending
	h.pending = nil
	h.mu.Unlock()

	if f == nil {
		return
	}
	if h.latest != nil && f.seq <= h.latest.seq {
		klog.V(2).Infof("skipping stale state %d (have %d)", f.seq, h.latest.seq)
		return
	}
	h.latest = f

	for c := range h.clients {
		select {
		case c.send <- f.data:
		default:
			klog.Warningf("dropping slow websocket client")
			close(c.send)
			delete(h.clients, c)
		}
	}
}

// Stop shuts the hub down and closes every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Publish queues a snapshot for every client. It never blocks; a snapshot
// older than one already queued is discarded.
func (h *Hub) Publish(s flickrset.Snapshot) {
	f := &frame{seq: s.Seq, data: encode(Message{Type: MsgState, State: &s, Timestamp: time.Now()})}

	h.mu.Lock()
	if h.pending == nil || f.seq > h.pending.seq {
		h.pending = f
	}
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Serve upgrades r to a websocket that receives the newest state, then every published update.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		klog.Errorf("websocket upgrade: %v", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- c:
	case <-h.stop:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

func encode(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		klog.Errorf("Failed to marshal: %v", err)
		return []byte("{}")
	}
	return b
}
