package scale

import (
	"errors"
	"fmt"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
)

var (
	ErrShortBuffer     = errors.New("unexpected end of input")
	ErrBadDiscriminant = errors.New("unknown variant discriminant")
	ErrBadBool         = errors.New("invalid boolean byte")
	ErrBadChar         = errors.New("invalid char")
	ErrInvalidUTF8     = errors.New("invalid utf-8 string")
	ErrUnknownType     = errors.New("unknown type id")
	ErrLeftoverBytes   = errors.New("leftover bytes after decode")
	ErrUnsupported     = errors.New("unsupported type")
	ErrShapeMismatch   = errors.New("value shape does not match type")
	ErrCompactOverflow = errors.New("compact value out of range")
	ErrNonCanonical    = errors.New("non-canonical compact encoding")
	ErrTooManyElems    = errors.New("too many zero-size elements")
)

// DecodeError is returned for any malformed input. Err wraps one of the
// package sentinels.
type DecodeError struct {
	TypeID registry.TypeID
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("scale: decode type %d at offset %d: %v", e.TypeID, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is returned when a value cannot be encoded as a type.
type EncodeError struct {
	TypeID registry.TypeID
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("scale: encode type %d: %v", e.TypeID, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// InvalidUnmarshalError describes an invalid argument passed to Unmarshal.
type InvalidUnmarshalError struct {
	Target string
}

func (e *InvalidUnmarshalError) Error() string {
	return "scale: Unmarshal(" + e.Target + ")"
}
