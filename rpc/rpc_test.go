package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cometbft/cometbft/libs/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
)

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type node struct {
	conn *websocket.Conn
}

func (n *node) reply(req request, result any) {
	n.conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func (n *node) replyError(req request, code int, message string) {
	n.conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": map[string]any{"code": code, "message": message}})
}

func (n *node) notify(method string, sub, result any) {
	n.conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "method": method, "params": map[string]any{"subscription": sub, "result": result}})
}

// startNode serves a websocket endpoint; handle runs on the connection's
// read goroutine for every request.
func startNode(t *testing.T, handle func(n *node, req request)) *rpc.Config {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := &node{conn: conn}
		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			handle(n, req)
		}
	}))
	t.Cleanup(srv.Close)
	cfg := rpc.DefaultConfig
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.Timeout = 5 * time.Second
	return &cfg
}

func dial(t *testing.T, cfg *rpc.Config) rpc.Client {
	t.Helper()
	c, err := rpc.Dial(cfg, log.NewTMLogger(log.NewSyncWriter(os.Stdout)))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestWSCall(t *testing.T) {
	cfg := startNode(t, func(n *node, req request) {
		switch req.Method {
		case "chain_getBlockHash":
			var height int
			json.Unmarshal(req.Params[0], &height)
			n.reply(req, fmt.Sprintf("0x%064x", height))
		case "state_getStorage":
			n.reply(req, nil)
		default:
			n.replyError(req, -32601, "Method not found")
		}
	})
	c := dial(t, cfg)
	ctx := context.Background()

	var hash string
	require.NoError(t, c.Call(ctx, &hash, "chain_getBlockHash", 5))
	assert.Equal(t, "0x"+strings.Repeat("0", 63)+"5", hash)

	var value *string
	require.NoError(t, c.Call(ctx, &value, "state_getStorage", "0x00"))
	assert.Nil(t, value)

	err := c.Call(ctx, nil, "nope")
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
	assert.Equal(t, "Method not found", rpcErr.Message)
}

func TestWSConcurrentCalls(t *testing.T) {
	cfg := startNode(t, func(n *node, req request) {
		var v int
		json.Unmarshal(req.Params[0], &v)
		n.reply(req, v*2)
	})
	c := dial(t, cfg)

	var wg sync.WaitGroup
	results := make([]int, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Call(context.Background(), &results[i], "double", i)
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, i*2, results[i])
	}
}

func TestWSSubscription(t *testing.T) {
	unwatched := make(chan string, 1)
	cfg := startNode(t, func(n *node, req request) {
		switch req.Method {
		case "author_submitAndWatchExtrinsic":
			n.reply(req, "sub1")
			n.notify("author_extrinsicUpdate", "sub1", "ready")
			n.notify("author_extrinsicUpdate", "other", "future")
			n.notify("author_extrinsicUpdate", "sub1", map[string]string{"inBlock": "0xaa"})
		case "author_unwatchExtrinsic":
			var id string
			json.Unmarshal(req.Params[0], &id)
			unwatched <- id
			n.reply(req, true)
		}
	})
	c := dial(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", "0x00")
	require.NoError(t, err)

	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"ready"`, string(msg))
	msg, err = sub.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"inBlock":"0xaa"}`, string(msg))

	sub.Unsubscribe()
	select {
	case id := <-unwatched:
		assert.Equal(t, "sub1", id)
	case <-ctx.Done():
		t.Fatal("unsubscribe not sent")
	}
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWSNumericSubscriptionID(t *testing.T) {
	cfg := startNode(t, func(n *node, req request) {
		if req.Method == "chain_subscribeNewHeads" {
			n.reply(req, 7)
			n.notify("chain_newHead", 7, map[string]string{"number": "0x1"})
		}
	})
	c := dial(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, "chain_subscribeNewHeads", "")
	require.NoError(t, err)
	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"number":"0x1"}`, string(msg))
}

func TestWSConnectionLost(t *testing.T) {
	cfg := startNode(t, func(n *node, req request) {
		switch req.Method {
		case "author_submitAndWatchExtrinsic":
			n.reply(req, "sub1")
			n.notify("author_extrinsicUpdate", "sub1", "ready")
		case "hangup":
			n.conn.Close()
		}
	})
	c := dial(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", "0x00")
	require.NoError(t, err)

	err = c.Call(ctx, nil, "hangup")
	assert.ErrorIs(t, err, rpc.ErrClosed)

	// queued notifications survive the connection
	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"ready"`, string(msg))
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, rpc.ErrClosed)

	assert.ErrorIs(t, c.Call(ctx, nil, "anything"), rpc.ErrClosed)
}

func TestWSNextHonoursContext(t *testing.T) {
	cfg := startNode(t, func(n *node, req request) {
		n.reply(req, "sub1")
	})
	c := dial(t, cfg)
	sub, err := c.Subscribe(context.Background(), "author_submitAndWatchExtrinsic", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDialUnsupportedScheme(t *testing.T) {
	cfg := rpc.DefaultConfig
	cfg.URL = "ftp://127.0.0.1:9944"
	_, err := rpc.Dial(&cfg, log.NewNopLogger())
	assert.ErrorIs(t, err, rpc.ErrUnsupportedScheme)
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "system_accountNextIndex":
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": 42})
		default:
			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": 1010, "message": "Invalid Transaction", "data": "Inability to pay some fees"}})
		}
	}))
	defer srv.Close()

	cfg := rpc.DefaultConfig
	cfg.URL = srv.URL
	c, err := rpc.Dial(&cfg, log.NewNopLogger())
	require.NoError(t, err)
	defer c.Close()

	var nonce uint64
	require.NoError(t, c.Call(context.Background(), &nonce, "system_accountNextIndex", "5Grw"))
	assert.Equal(t, uint64(42), nonce)

	err = c.Call(context.Background(), nil, "author_submitExtrinsic", "0x00")
	var rpcErr *rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 1010, rpcErr.Code)
	assert.JSONEq(t, `"Inability to pay some fees"`, string(rpcErr.Data))

	_, err = c.Subscribe(context.Background(), "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic")
	assert.Error(t, err)
}
