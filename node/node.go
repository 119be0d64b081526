package node

import (
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"

	"github.com/PolymeshAssociation/polymesh-api-sub001/config"
	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
)

//------------------------------------------------------------------------------

// Node is the highest level handle of a client: one node connection and the
// chain view built on it.
type Node struct {
	service.BaseService
	config *config.Config

	client rpc.Client
	chain  *core.Chain
}

// Option sets a parameter for the node.
type Option func(*Node)

// WithClient uses client instead of dialing the configured URL.
func WithClient(client rpc.Client) Option {
	return func(n *Node) { n.client = client }
}

// NewNode returns a new, ready to start Node.
func NewNode(cfg *config.Config, logger log.Logger, options ...Option) (*Node, error) {
	node := &Node{config: cfg}
	for _, option := range options {
		option(node)
	}
	if node.client == nil {
		client, err := rpc.Dial(&cfg.RPC, logger)
		if err != nil {
			return nil, err
		}
		node.client = client
	}
	node.chain = core.NewChain(node.client, &cfg.Storage, logger)
	node.BaseService = *service.NewBaseService(logger.With("module", "node"), "Node", node)
	return node, nil
}

// OnStart starts the Node. It implements service.Service.
func (n *Node) OnStart() error {
	if err := n.chain.Start(); err != nil {
		n.client.Close()
		return err
	}
	return nil
}

// OnStop stops the Node. It implements service.Service.
func (n *Node) OnStop() {
	if n.chain.IsRunning() {
		n.chain.Stop()
	}
	n.client.Close()
}

func (n *Node) Chain() *core.Chain {
	return n.chain
}

func (n *Node) Client() rpc.Client {
	return n.client
}

func (n *Node) Config() *config.Config {
	return n.config
}
