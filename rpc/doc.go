/*
Package rpc is the client side of a node's JSON-RPC 2.0 interface.

Two transports implement [Client]:

  - [WSClient] over [github.com/gorilla/websocket], supporting
    subscriptions. It is a [github.com/cometbft/cometbft/libs/service.BaseService].
  - [HTTPClient] over [github.com/ethereum/go-ethereum/rpc], request and
    response only.

[Dial] picks one by the scheme of the configured URL.

# Example

request:

	{"jsonrpc": "2.0", "method": "chain_getBlockHash", "params": [1], "id": 1}

response:

	{"jsonrpc":"2.0","result":"0x9ba1bb8d5e7e1f0bd5b52dc3fbf1b3e4b22cd7ad6b1b2a8e7e0a8d1e4f0b7d40","id":1}

# Subscriptions

A subscribing method answers with a subscription id; notifications then
carry that id, under a method name chosen by the node:

	{"jsonrpc":"2.0","method":"author_submitAndWatchExtrinsic","params":["0x2d02..."],"id":2}
	{"jsonrpc":"2.0","result":"KJ2fZAbSbnNo4RrG","id":2}
	{"jsonrpc":"2.0","method":"author_extrinsicUpdate","params":{"subscription":"KJ2fZAbSbnNo4RrG","result":"ready"}}
	{"jsonrpc":"2.0","method":"author_extrinsicUpdate","params":{"subscription":"KJ2fZAbSbnNo4RrG","result":{"inBlock":"0x..."}}}

Notifications are queued per subscription without bound, so a slow
reader of one subscription never holds up calls or other subscriptions.
*/
package rpc
