package types

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// DefaultSS58Prefix is the generic Substrate address format.
const DefaultSS58Prefix uint16 = 42

var ss58Pre = []byte("SS58PRE")

// AccountID is a 32 byte account identifier (AccountId32).
type AccountID [32]byte

func NewAccountID(b []byte) (AccountID, error) {
	var a AccountID
	if len(b) != len(a) {
		return a, ErrInvalidAccount
	}
	copy(a[:], b)
	return a, nil
}

// ParseAccountID accepts an SS58 address of any prefix or 0x prefixed hex.
func ParseAccountID(s string) (AccountID, error) {
	if strings.HasPrefix(s, "0x") {
		b, err := hexutil.Decode(s)
		if err != nil {
			return AccountID{}, err
		}
		return NewAccountID(b)
	}
	_, pub, err := DecodeSS58(s)
	if err != nil {
		return AccountID{}, err
	}
	return NewAccountID(pub)
}

func (a AccountID) Bytes() []byte { return a[:] }

func (a AccountID) Hex() string { return hexutil.Encode(a[:]) }

// SS58 formats the account for the network identified by prefix.
func (a AccountID) SS58(prefix uint16) string { return EncodeSS58(prefix, a[:]) }

func (a AccountID) String() string { return a.SS58(DefaultSS58Prefix) }

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func ss58Checksum(data []byte) []byte {
	h := blake2b.Sum512(append(append([]byte{}, ss58Pre...), data...))
	return h[:2]
}

// EncodeSS58 encodes pub under the network prefix. Prefixes below 64 take one
// byte, the rest up to 16383 two.
func EncodeSS58(prefix uint16, pub []byte) string {
	var data []byte
	if prefix < 64 {
		data = []byte{byte(prefix)}
	} else {
		data = []byte{
			byte(prefix&0xfc)>>2 | 0x40,
			byte(prefix>>8) | byte(prefix&0x03)<<6,
		}
	}
	data = append(data, pub...)
	data = append(data, ss58Checksum(data)...)
	return base58.Encode(data)
}

// DecodeSS58 returns the network prefix and public key of a 32 or 33 byte
// key address.
func DecodeSS58(s string) (uint16, []byte, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(data) < 2 {
		return 0, nil, ErrInvalidAddress
	}
	var prefix uint16
	prefixLen := 1
	switch {
	case data[0] < 64:
		prefix = uint16(data[0])
	case data[0] < 128:
		lower := data[0]<<2 | data[1]>>6
		upper := data[1] & 0x3f
		prefix = uint16(lower) | uint16(upper)<<8
		prefixLen = 2
	default:
		return 0, nil, fmt.Errorf("%w: reserved prefix byte %#x", ErrInvalidAddress, data[0])
	}
	keyLen := len(data) - prefixLen - 2
	if keyLen != 32 && keyLen != 33 {
		return 0, nil, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(data))
	}
	body, sum := data[:len(data)-2], data[len(data)-2:]
	if !bytes.Equal(ss58Checksum(body), sum) {
		return 0, nil, ErrBadChecksum
	}
	return prefix, body[prefixLen:], nil
}
