package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TxStatusKind is the stage of a watched transaction.
type TxStatusKind uint8

const (
	// Submitted is the local state before the node reported anything.
	Submitted TxStatusKind = iota
	Future
	Ready
	Broadcast
	InBlock
	Retracted
	FinalityTimeout
	Finalized
	Usurped
	Dropped
	Invalid
)

var statusNames = [...]string{
	Submitted:       "submitted",
	Future:          "future",
	Ready:           "ready",
	Broadcast:       "broadcast",
	InBlock:         "inBlock",
	Retracted:       "retracted",
	FinalityTimeout: "finalityTimeout",
	Finalized:       "finalized",
	Usurped:         "usurped",
	Dropped:         "dropped",
	Invalid:         "invalid",
}

func (k TxStatusKind) String() string {
	if int(k) < len(statusNames) {
		return statusNames[k]
	}
	return fmt.Sprintf("TxStatusKind(%d)", uint8(k))
}

func kindByName(name string) (TxStatusKind, bool) {
	for k, n := range statusNames {
		if n == name && TxStatusKind(k) != Submitted {
			return TxStatusKind(k), true
		}
	}
	return 0, false
}

// TxStatus is one author_extrinsicUpdate notification.
type TxStatus struct {
	Kind TxStatusKind
	// Hash is the block for InBlock, Retracted, FinalityTimeout and
	// Finalized, and the replacing extrinsic for Usurped.
	Hash Hash
	// Peers is set for Broadcast.
	Peers []string
}

// IsTerminal reports whether no further updates follow.
func (s TxStatus) IsTerminal() bool {
	switch s.Kind {
	case Finalized, FinalityTimeout, Usurped, Dropped, Invalid:
		return true
	}
	return false
}

// IsFailure reports whether the transaction will never be finalized.
func (s TxStatus) IsFailure() bool {
	return s.IsTerminal() && s.Kind != Finalized
}

func (s TxStatus) String() string {
	switch s.Kind {
	case InBlock, Retracted, FinalityTimeout, Finalized, Usurped:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Hash.Hex())
	case Broadcast:
		return fmt.Sprintf("%s(%d peers)", s.Kind, len(s.Peers))
	}
	return s.Kind.String()
}

func (s TxStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case InBlock, Retracted, FinalityTimeout, Finalized, Usurped:
		return json.Marshal(map[string]Hash{s.Kind.String(): s.Hash})
	case Broadcast:
		peers := s.Peers
		if peers == nil {
			peers = []string{}
		}
		return json.Marshal(map[string][]string{s.Kind.String(): peers})
	}
	return json.Marshal(s.Kind.String())
}

// UnmarshalJSON accepts the node's encoding: a bare string for statuses
// without payload, a single-key object otherwise.
func (s *TxStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		k, ok := kindByName(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTxStatus, name)
		}
		*s = TxStatus{Kind: k}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if len(obj) != 1 {
		return fmt.Errorf("%w: %s", ErrUnknownTxStatus, data)
	}
	for name, payload := range obj {
		k, ok := kindByName(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownTxStatus, name)
		}
		st := TxStatus{Kind: k}
		switch k {
		case Broadcast:
			if err := json.Unmarshal(payload, &st.Peers); err != nil {
				return err
			}
		case InBlock, Retracted, FinalityTimeout, Finalized, Usurped:
			if err := json.Unmarshal(payload, &st.Hash); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q carries no payload", ErrUnknownTxStatus, name)
		}
		*s = st
	}
	return nil
}
