// Package events holds process-wide feeds. Publishers call Send, consumers
// Subscribe with an id that is unique per consumer.
package events

import (
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
)

var (
	RuntimeUpgraded = &FeedOf[RuntimeUpgrade]{} // The node switched to a runtime with a newer spec version.
	TxStatus        = &FeedOf[TxUpdate]{}       // A watched transaction reported a new status.
)

type RuntimeUpgrade struct {
	Previous *types.RuntimeVersion // nil for the first runtime seen
	Current  types.RuntimeVersion
}

type TxUpdate struct {
	Hash   types.Hash
	Status types.TxStatus
}
