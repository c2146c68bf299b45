package serialization

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks a compression stream failure.
	ErrIO = errors.New("io")
	// ErrEncode marks a message that could not be encoded.
	ErrEncode = errors.New("encode")
	// ErrDecode marks a payload that could not be decompressed or parsed.
	ErrDecode = errors.New("decode")
)

// CodecError wraps a serializer failure with its class. errors.Is matches
// both the class sentinel and the underlying cause.
type CodecError struct {
	Kind error
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("subgraph codec: %v: %v", e.Kind, e.Err)
}

func (e *CodecError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func ioError(err error) error     { return &CodecError{Kind: ErrIO, Err: err} }
func encodeError(err error) error { return &CodecError{Kind: ErrEncode, Err: err} }
func decodeError(err error) error { return &CodecError{Kind: ErrDecode, Err: err} }
