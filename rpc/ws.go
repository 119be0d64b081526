package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/gorilla/websocket"
)

type jsonrpcMessage struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func (m *jsonrpcMessage) isResponse() bool {
	return len(m.ID) > 0 && !bytes.Equal(m.ID, []byte("null")) && m.Method == ""
}

type notificationParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type pendingCall struct {
	ch  chan *jsonrpcMessage
	sub *wsSubscription // set for subscribe requests
}

// WSClient is a websocket connection to a node. A single reader goroutine
// routes responses to waiting calls by request id and notifications to
// subscriptions by subscription id.
type WSClient struct {
	service.BaseService
	config *Config

	conn    *websocket.Conn
	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]*pendingCall
	subs    map[string]*wsSubscription
	err     error
}

func NewWSClient(cfg *Config, logger log.Logger) *WSClient {
	c := &WSClient{
		config:  cfg,
		pending: make(map[uint64]*pendingCall),
		subs:    make(map[string]*wsSubscription),
	}
	c.BaseService = *service.NewBaseService(logger.With("module", "rpc"), "WSClient", c)
	return c
}

func (c *WSClient) OnStart() error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.Timeout}
	c.Logger.Debug("dialing", "url", c.config.URL)
	conn, _, err := dialer.Dial(c.config.URL, nil)
	if err != nil {
		return err
	}
	if c.config.ReadLimit > 0 {
		conn.SetReadLimit(c.config.ReadLimit)
	}
	c.conn = conn
	c.Logger.Info("connected", "url", c.config.URL)
	go c.readLoop()
	return nil
}

func (c *WSClient) OnStop() {
	c.conn.Close()
}

// Close stops the client. Pending calls and open subscriptions fail with
// ErrClosed.
func (c *WSClient) Close() {
	if err := c.Stop(); err != nil && err != service.ErrAlreadyStopped && err != service.ErrNotStarted {
		c.Logger.Error("stop", "err", err)
	}
}

func (c *WSClient) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		var msg jsonrpcMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Logger.Error("invalid message", "err", err)
			continue
		}
		if msg.isResponse() {
			c.handleResponse(&msg)
		} else if msg.Method != "" {
			c.handleNotification(&msg)
		}
	}
}

func (c *WSClient) handleResponse(msg *jsonrpcMessage) {
	id, err := strconv.ParseUint(string(msg.ID), 10, 64)
	if err != nil {
		c.Logger.Error("unexpected response id", "id", string(msg.ID))
		return
	}
	c.mu.Lock()
	call, ok := c.pending[id]
	delete(c.pending, id)
	// Registered before the next frame is read, so notifications that
	// directly follow the response are not lost.
	if ok && call.sub != nil && msg.Error == nil {
		call.sub.raw = msg.Result
		call.sub.key = subscriptionKey(msg.Result)
		c.subs[call.sub.key] = call.sub
	}
	c.mu.Unlock()
	if !ok {
		c.Logger.Debug("response without caller", "id", id)
		return
	}
	call.ch <- msg
}

func (c *WSClient) handleNotification(msg *jsonrpcMessage) {
	var params notificationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.Logger.Error("invalid notification", "method", msg.Method, "err", err)
		return
	}
	key := subscriptionKey(params.Subscription)
	c.mu.Lock()
	sub, ok := c.subs[key]
	c.mu.Unlock()
	if !ok {
		c.Logger.Debug("notification for unknown subscription", "method", msg.Method, "subscription", key)
		return
	}
	sub.push(params.Result)
}

// subscriptionKey normalizes a subscription id; nodes use both strings and
// numbers.
func subscriptionKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// fail ends the connection: pending calls and subscriptions see the error.
func (c *WSClient) fail(cause error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrClosed, cause)
	}
	err := c.err
	pending, subs := c.pending, c.subs
	c.pending = make(map[uint64]*pendingCall)
	c.subs = make(map[string]*wsSubscription)
	c.mu.Unlock()

	if c.IsRunning() {
		c.Logger.Error("connection lost", "err", cause)
	}
	for _, call := range pending {
		close(call.ch)
		if call.sub != nil {
			call.sub.fail(err)
		}
	}
	for _, sub := range subs {
		sub.fail(err)
	}
}

func (c *WSClient) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

func (c *WSClient) write(ctx context.Context, msg *jsonrpcMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(msg)
}

func (c *WSClient) request(ctx context.Context, method string, params []any, sub *wsSubscription) (*jsonrpcMessage, error) {
	if _, ok := ctx.Deadline(); !ok && c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	id := c.nextID.Add(1)
	msg := &jsonrpcMessage{Version: "2.0", ID: strconv.AppendUint(nil, id, 10), Method: method, Params: body}
	call := &pendingCall{ch: make(chan *jsonrpcMessage, 1), sub: sub}

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = call
	c.mu.Unlock()

	if err := c.write(ctx, msg); err != nil {
		c.forget(id)
		return nil, err
	}
	select {
	case resp, ok := <-call.ch:
		if !ok {
			return nil, c.closedErr()
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *WSClient) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *WSClient) Call(ctx context.Context, result any, method string, params ...any) error {
	resp, err := c.request(ctx, method, params, nil)
	if err != nil {
		return err
	}
	if result == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, result)
}

func (c *WSClient) Subscribe(ctx context.Context, method, unsubscribe string, params ...any) (Subscription, error) {
	sub := &wsSubscription{client: c, method: method, unsubscribe: unsubscribe, signal: make(chan struct{}, 1)}
	if _, err := c.request(ctx, method, params, sub); err != nil {
		return nil, err
	}
	c.Logger.Debug("subscribed", "method", method, "subscription", sub.key)
	return sub, nil
}

func (c *WSClient) dropSubscription(key string) {
	c.mu.Lock()
	delete(c.subs, key)
	c.mu.Unlock()
}

type wsSubscription struct {
	client      *WSClient
	method      string
	unsubscribe string
	raw         json.RawMessage
	key         string
	once        sync.Once

	mu     sync.Mutex
	queue  []json.RawMessage
	err    error
	signal chan struct{}
}

func (s *wsSubscription) push(msg json.RawMessage) {
	s.mu.Lock()
	if s.err == nil {
		s.queue = append(s.queue, msg)
	}
	s.mu.Unlock()
	s.wake()
}

func (s *wsSubscription) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.wake()
}

func (s *wsSubscription) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *wsSubscription) Next(ctx context.Context) (json.RawMessage, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue[0] = nil
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		err := s.err
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		select {
		case <-s.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Unsubscribe stops delivery and cancels the subscription on the node.
// Notifications already queued can still be read.
func (s *wsSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.dropSubscription(s.key)
		s.fail(io.EOF)
		if s.unsubscribe == "" || !s.client.IsRunning() {
			return
		}
		if err := s.client.Call(context.Background(), nil, s.unsubscribe, s.raw); err != nil {
			s.client.Logger.Debug("unsubscribe", "method", s.unsubscribe, "err", err)
		}
	})
}
