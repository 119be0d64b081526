// Package transactor submits extrinsics and follows them until they are
// finalized or will never be.
package transactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/cometbft/cometbft/libs/log"

	"github.com/PolymeshAssociation/polymesh-api-sub001/core"
	"github.com/PolymeshAssociation/polymesh-api-sub001/events"
	"github.com/PolymeshAssociation/polymesh-api-sub001/rpc"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types"
	"github.com/PolymeshAssociation/polymesh-api-sub001/types/extrinsic"
)

var (
	ErrWillNotComplete    = errors.New("transaction will not complete")
	ErrEventsNotAvailable = errors.New("transaction events not available yet")
)

// StatusError reports the terminal status of a transaction that will never
// be finalized.
type StatusError struct {
	Status types.TxStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", ErrWillNotComplete, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrWillNotComplete }

// Transaction tracks one submitted extrinsic through its watch
// subscription. It must be driven by a single goroutine.
type Transaction struct {
	chain  *core.Chain
	hash   types.Hash
	sub    rpc.Subscription
	logger log.Logger

	status types.TxStatus
	block  *types.Hash
	err    error
	events map[types.Hash][]types.EventRecord
}

// Submit sends an encoded extrinsic and watches it.
func Submit(ctx context.Context, chain *core.Chain, encoded []byte) (*Transaction, error) {
	hash := extrinsic.Hash(encoded)
	sub, err := chain.Client().Subscribe(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", types.Bytes(encoded))
	if err != nil {
		return nil, err
	}
	tx := &Transaction{
		chain:  chain,
		hash:   hash,
		sub:    sub,
		logger: chain.Logger.With("tx", hash.Hex()),
		events: make(map[types.Hash][]types.EventRecord),
	}
	tx.logger.Debug("submitted", "size", len(encoded))
	return tx, nil
}

func (tx *Transaction) Hash() types.Hash { return tx.hash }

func (tx *Transaction) Status() types.TxStatus { return tx.status }

// BlockHash returns the block the transaction is currently included in.
func (tx *Transaction) BlockHash() (types.Hash, bool) {
	if tx.block == nil {
		return types.Hash{}, false
	}
	return *tx.block, true
}

// Next waits for the next status update and applies it. After a terminal
// status it returns that status again without blocking. Failures wrap
// ErrWillNotComplete; a canceled ctx does not end the transaction.
func (tx *Transaction) Next(ctx context.Context) (types.TxStatus, error) {
	if tx.err != nil {
		return tx.status, tx.err
	}
	if tx.status.IsTerminal() {
		return tx.status, nil
	}
	msg, err := tx.sub.Next(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return tx.status, err
		}
		if errors.Is(err, io.EOF) {
			tx.err = fmt.Errorf("%w: subscription ended in state %s", ErrWillNotComplete, tx.status)
		} else {
			tx.err = fmt.Errorf("%w: %w", ErrWillNotComplete, err)
		}
		tx.logger.Info("watch ended", "status", tx.status, "err", err)
		tx.sub.Unsubscribe()
		return tx.status, tx.err
	}
	var st types.TxStatus
	if err := json.Unmarshal(msg, &st); err != nil {
		tx.err = fmt.Errorf("%w: %w", ErrWillNotComplete, err)
		tx.sub.Unsubscribe()
		return tx.status, tx.err
	}
	tx.apply(st)
	if st.IsFailure() {
		tx.err = &StatusError{Status: st}
	}
	return st, tx.err
}

func (tx *Transaction) apply(st types.TxStatus) {
	switch st.Kind {
	case types.InBlock, types.Finalized:
		block := st.Hash
		tx.block = &block
	case types.Retracted:
		tx.block = nil
	}
	tx.status = st
	tx.logger.Debug("status", "status", st)
	events.TxStatus.Send(events.TxUpdate{Hash: tx.hash, Status: st})
	if st.IsTerminal() {
		tx.sub.Unsubscribe()
	}
}

// Wait drives the transaction until it is finalized and returns the block.
func (tx *Transaction) Wait(ctx context.Context) (types.Hash, error) {
	for tx.status.Kind != types.Finalized {
		if _, err := tx.Next(ctx); err != nil {
			return types.Hash{}, err
		}
	}
	return *tx.block, nil
}

// WaitInBlock drives the transaction until it is included in a block.
func (tx *Transaction) WaitInBlock(ctx context.Context) (types.Hash, error) {
	for tx.block == nil {
		if _, err := tx.Next(ctx); err != nil {
			return types.Hash{}, err
		}
	}
	return *tx.block, nil
}

// Events returns the events the transaction emitted in its current block,
// decoded with that block's runtime. It does not drive the subscription:
// without a known block it returns ErrEventsNotAvailable, or the failure
// when the transaction will never complete.
func (tx *Transaction) Events(ctx context.Context) ([]types.EventRecord, error) {
	if tx.block == nil {
		var failed *StatusError
		if errors.As(tx.err, &failed) {
			return nil, tx.err
		}
		return nil, ErrEventsNotAvailable
	}
	block := *tx.block
	if records, ok := tx.events[block]; ok {
		return records, nil
	}
	records, err := tx.chain.ExtrinsicEvents(ctx, block, tx.hash)
	if err != nil {
		return nil, err
	}
	tx.events[block] = records
	return records, nil
}

// Close stops watching. The transaction may still be included.
func (tx *Transaction) Close() {
	tx.sub.Unsubscribe()
}
