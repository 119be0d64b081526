package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
)

// Handler answers one call. Params and result pass through JSON as they
// would on a real transport, so params hold strings, float64s, maps and
// slices.
type Handler func(params []any) (any, error)

// SubscribeHandler opens a subscription for one call.
type SubscribeHandler func(params []any) (*FakeSubscription, error)

// Call is a recorded request.
type Call struct {
	Method string
	Params []any
}

// FakeClient is a scripted rpc.Client. Methods without a handler fail with
// the JSON-RPC "method not found" error.
type FakeClient struct {
	mu        sync.Mutex
	handlers  map[string]Handler
	subs      map[string]SubscribeHandler
	calls     []Call
	closed    bool
	unwatched []string
}

var _ rpc.Client = (*FakeClient)(nil)

func NewFakeClient() *FakeClient {
	return &FakeClient{
		handlers: make(map[string]Handler),
		subs:     make(map[string]SubscribeHandler),
	}
}

func (c *FakeClient) Handle(method string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = h
}

// HandleValue answers method with a fixed result.
func (c *FakeClient) HandleValue(method string, result any) {
	c.Handle(method, func([]any) (any, error) { return result, nil })
}

func (c *FakeClient) HandleSubscribe(method string, h SubscribeHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[method] = h
}

// Calls returns the recorded requests for method.
func (c *FakeClient) Calls(method string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}

// Unwatched returns the unsubscribe methods invoked so far.
func (c *FakeClient) Unwatched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.unwatched...)
}

func (c *FakeClient) record(method string, params []any) ([]any, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var decoded []any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, rpc.ErrClosed
	}
	c.calls = append(c.calls, Call{Method: method, Params: decoded})
	return decoded, nil
}

func (c *FakeClient) Call(ctx context.Context, result any, method string, params ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params, err := c.record(method, params)
	if err != nil {
		return err
	}
	c.mu.Lock()
	h, ok := c.handlers[method]
	c.mu.Unlock()
	if !ok {
		return &rpc.Error{Code: -32601, Message: fmt.Sprintf("Method not found: %s", method)}
	}
	v, err := h(params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}

func (c *FakeClient) Subscribe(ctx context.Context, method, unsubscribe string, params ...any) (rpc.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params, err := c.record(method, params)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	h, ok := c.subs[method]
	c.mu.Unlock()
	if !ok {
		return nil, &rpc.Error{Code: -32601, Message: fmt.Sprintf("Method not found: %s", method)}
	}
	sub, err := h(params)
	if err != nil {
		return nil, err
	}
	sub.onUnsubscribe = func() {
		c.mu.Lock()
		c.unwatched = append(c.unwatched, unsubscribe)
		c.mu.Unlock()
	}
	return sub, nil
}

func (c *FakeClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// FakeSubscription is fed by the test. Items pushed before End are delivered
// in order, then Next returns io.EOF or the error given to PushErr.
type FakeSubscription struct {
	mu            sync.Mutex
	queue         []json.RawMessage
	err           error
	signal        chan struct{}
	onUnsubscribe func()
	once          sync.Once
}

var _ rpc.Subscription = (*FakeSubscription)(nil)

func NewFakeSubscription() *FakeSubscription {
	return &FakeSubscription{signal: make(chan struct{}, 1)}
}

// Push queues v as JSON.
func (s *FakeSubscription) Push(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: push: %v", err))
	}
	s.PushRaw(data)
}

func (s *FakeSubscription) PushRaw(msg json.RawMessage) {
	s.mu.Lock()
	if s.err == nil {
		s.queue = append(s.queue, msg)
	}
	s.mu.Unlock()
	s.wake()
}

// PushErr ends the subscription with err after the queued items.
func (s *FakeSubscription) PushErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.wake()
}

// End ends the subscription normally.
func (s *FakeSubscription) End() { s.PushErr(io.EOF) }

func (s *FakeSubscription) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *FakeSubscription) Next(ctx context.Context) (json.RawMessage, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
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

func (s *FakeSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.End()
		if s.onUnsubscribe != nil {
			s.onUnsubscribe()
		}
	})
}
