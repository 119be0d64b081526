package types

import "errors"

var (
	ErrInvalidAddress  = errors.New("invalid ss58 address")
	ErrBadChecksum     = errors.New("ss58 checksum mismatch")
	ErrInvalidAccount  = errors.New("account id must be 32 bytes")
	ErrUnknownTxStatus = errors.New("unknown transaction status")
	ErrInvalidHash     = errors.New("hash must be 32 bytes")
)
