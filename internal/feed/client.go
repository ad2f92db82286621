// Package feed implements the live market-data feed client: one WebSocket
// connection per venue, reference-counted topic subscriptions, and parsed
// messages delivered on per-topic channels. Keeping the transport behind a
// channel boundary lets the merge layer stay testable without a live socket.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	subscriberBuf = 64
	pingInterval  = 20 * time.Second
	reconnectWait = 2 * time.Second
)

// op is the control frame sent to manage server-side interest.
type op struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type subscriber struct {
	id int
	ch chan Message
}

// Client is an explicitly constructed feed client; callers own its lifecycle
// and inject it where needed. There is no package-level connection state.
type Client struct {
	url string
	log *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	refs    map[string]int
	subs    map[string][]subscriber
	nextSub int
}

// NewClient creates a feed client for the given WebSocket URL. Run must be
// started for messages to flow.
func NewClient(url string, log *slog.Logger) *Client {
	return &Client{
		url:  url,
		log:  log.With("component", "feed"),
		refs: make(map[string]int),
		subs: make(map[string][]subscriber),
	}
}

// Subscribe registers interest in a topic and returns the channel messages
// arrive on plus an unsubscribe function. Subscriptions are reference
// counted: the first subscriber for a topic sends the server-side subscribe
// op, and only the last unsubscribe tears down server-side interest. Slow
// consumers lose messages rather than stall the read loop.
func (c *Client) Subscribe(topic string) (<-chan Message, func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Message, subscriberBuf)
	c.subs[topic] = append(c.subs[topic], subscriber{id: id, ch: ch})
	c.refs[topic]++
	first := c.refs[topic] == 1
	conn := c.conn
	c.mu.Unlock()

	if first && conn != nil {
		c.send(conn, op{Op: "subscribe", Args: []string{topic}})
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { c.unsubscribe(topic, id) })
	}
	return ch, cancel
}

func (c *Client) unsubscribe(topic string, id int) {
	c.mu.Lock()
	list := c.subs[topic]
	for i, s := range list {
		if s.id == id {
			close(s.ch)
			c.subs[topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
	c.refs[topic]--
	last := c.refs[topic] <= 0
	if last {
		delete(c.refs, topic)
		delete(c.subs, topic)
	}
	conn := c.conn
	c.mu.Unlock()

	if last && conn != nil {
		c.send(conn, op{Op: "unsubscribe", Args: []string{topic}})
	}
}

// Run connects to the venue and pumps messages until ctx is cancelled,
// reconnecting (and resubscribing every reference-counted topic) after
// transport failures.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := c.runConn(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("feed connection lost", "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectWait):
		}
	}
}

func (c *Client) runConn(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.mu.Lock()
	c.conn = conn
	topics := make([]string, 0, len(c.refs))
	for topic := range c.refs {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	if len(topics) > 0 {
		c.send(conn, op{Op: "subscribe", Args: topics})
	}
	c.log.Info("feed connected", "url", c.url, "topics", len(topics))

	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go c.pingLoop(pingCtx, conn)

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		msgs, err := decodeFrame(raw)
		if err != nil {
			c.log.Warn("dropping malformed frame", "error", err)
			continue
		}
		for _, m := range msgs {
			c.dispatch(m)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.send(conn, op{Op: "ping"})
		}
	}
}

// dispatch sends under the lock so an unsubscribe cannot close a channel
// between snapshot and send. The sends never block.
func (c *Client) dispatch(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs[m.Topic] {
		select {
		case s.ch <- m:
		default:
			// Slow subscriber, drop message.
		}
	}
}

func (c *Client) send(conn *websocket.Conn, o op) {
	data, err := json.Marshal(o)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.log.Warn("writing control frame", "op", o.Op, "error", err)
	}
}
