package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	ethrpc "github.com/ethereum/go-ethereum/rpc"
)

// HTTPClient issues request/response calls over HTTP. It cannot subscribe.
type HTTPClient struct {
	c *ethrpc.Client
}

func NewHTTPClient(ctx context.Context, cfg *Config) (*HTTPClient, error) {
	c, err := ethrpc.DialOptions(ctx, cfg.URL, ethrpc.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	if err != nil {
		return nil, err
	}
	return &HTTPClient{c: c}, nil
}

func (h *HTTPClient) Call(ctx context.Context, result any, method string, params ...any) error {
	return convertError(h.c.CallContext(ctx, result, method, params...))
}

func (h *HTTPClient) Subscribe(context.Context, string, string, ...any) (Subscription, error) {
	return nil, ethrpc.ErrNotificationsUnsupported
}

func (h *HTTPClient) Close() {
	h.c.Close()
}

// convertError turns node error objects into *Error so callers see the same
// error type from every transport.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr ethrpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	e := &Error{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	var dataErr ethrpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		e.Data, _ = json.Marshal(dataErr.ErrorData())
	}
	return e
}
