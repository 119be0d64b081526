package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/cometbft/cometbft/libs/log"
)

var (
	ErrClosed            = errors.New("rpc: connection closed")
	ErrUnsupportedScheme = errors.New("rpc: unsupported url scheme")
)

// Client is a JSON-RPC connection to a node. Implementations are safe for
// concurrent use.
type Client interface {
	// Call invokes method and unmarshals the result into result, which may
	// be nil to discard it.
	Call(ctx context.Context, result any, method string, params ...any) error
	// Subscribe invokes a subscribing method. unsubscribe names the method
	// that cancels the subscription on the node.
	Subscribe(ctx context.Context, method, unsubscribe string, params ...any) (Subscription, error)
	Close()
}

// Subscription delivers notifications in the order the node sent them.
type Subscription interface {
	// Next blocks for the next notification. It returns io.EOF once the
	// subscription has been unsubscribed and its queue drained, or the
	// transport error that ended it.
	Next(ctx context.Context) (json.RawMessage, error)
	Unsubscribe()
}

// Error is an error object returned by the node.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (e *Error) ErrorCode() int { return e.Code }

func (e *Error) ErrorData() interface{} { return e.Data }

// Dial connects to cfg.URL, choosing the transport by scheme: ws and wss
// get a WSClient, http and https an HTTPClient without subscriptions.
func Dial(cfg *Config, logger log.Logger) (Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "ws", "wss":
		c := NewWSClient(cfg, logger)
		if err := c.Start(); err != nil {
			return nil, err
		}
		return c, nil
	case "http", "https":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return NewHTTPClient(ctx, cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
}
