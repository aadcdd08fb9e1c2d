package scoring

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConfig holds WebSocket client settings for the scoring engine.
type ClientConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
}

// DefaultClientConfig returns a config with sensible timeouts. Scoring a
// long trace can take a while, so the read timeout is generous.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      2 * time.Minute,
	}
}

// Client is a persistent WebSocket session against the scoring engine.
// The engine holds per-session state, so one connection serves a whole
// batch of samples. Requests are serialized: one in flight at a time.
type Client struct {
	config ClientConfig

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID atomic.Uint64
}

type scoreRequest struct {
	ID           uint64    `json:"id"`
	Method       string    `json:"method"`
	Signal       []float64 `json:"signal"`
	SpikeIndices []int     `json:"spike_indices"`
}

type scoreResponse struct {
	ID     uint64  `json:"id"`
	Result *Scores `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient dials the scoring engine and returns a connected client.
func NewClient(ctx context.Context, config ClientConfig) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial scoring engine at %s: %w", config.URL, err)
	}

	return &Client{config: config, conn: conn}, nil
}

// Score sends one sample's trace and validated spike indices to the engine
// and waits for its metrics. Safe for concurrent use; calls are serialized
// on the single session.
func (c *Client) Score(ctx context.Context, signal []float64, spikeIndices []int) (*Scores, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("score: empty signal")
	}
	if spikeIndices == nil {
		spikeIndices = []int{}
	}

	req := scoreRequest{
		ID:           c.nextID.Add(1),
		Method:       "calculate_isolation_scores",
		Signal:       signal,
		SpikeIndices: spikeIndices,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("score: client is closed")
	}

	if err := c.conn.SetWriteDeadline(deadline(ctx, c.config.WriteTimeout)); err != nil {
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("send score request: %w", err)
	}

	if err := c.conn.SetReadDeadline(deadline(ctx, c.config.ReadTimeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	// Read until the matching response ID. The engine answers in order,
	// but a stale reply from an abandoned call must not be misattributed.
	for {
		var resp scoreResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("read score response: %w", err)
		}
		if resp.ID != req.ID {
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("scoring engine error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		if resp.Result == nil {
			return nil, fmt.Errorf("scoring engine returned no result")
		}
		return resp.Result, nil
	}
}

// Close ends the session cleanly.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// deadline picks the earlier of the context deadline and now+fallback.
func deadline(ctx context.Context, fallback time.Duration) time.Time {
	d := time.Now().Add(fallback)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
