package chain

import (
	"errors"
	"fmt"
)

// Set of error variables for block processing.
var (
	ErrHeightMismatch         = errors.New("block height mismatch")
	ErrPreviousHashMismatch   = errors.New("previous block hash mismatch")
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrTransactionSetMismatch = errors.New("transaction set mismatch")
	ErrInvalidTransaction     = errors.New("invalid transaction")
	ErrUnknownProtocol        = errors.New("unknown protocol version")
	ErrInvalidValidator       = errors.New("invalid block validator")
	ErrWrongChain             = errors.New("block belongs to a different chain")
	ErrTimestamp              = errors.New("block timestamp goes backwards")
	ErrStorageCorrupted       = errors.New("storage corrupted")
	ErrCommitFailed           = errors.New("commit failed")
	ErrHalted                 = errors.New("chain halted")
	ErrBlockOpen              = errors.New("a block is already open")
	ErrNoBlock                = errors.New("no block is open")
	ErrNotFound               = errors.New("not found")
)

// BlockError reports why a block was rejected.
type BlockError struct {
	Height uint64
	Err    error
}

// NewBlockError wraps the error with the height of the block.
func NewBlockError(height uint64, err error) error {
	return &BlockError{Height: height, Err: err}
}

// Error implements the error interface.
func (be *BlockError) Error() string {
	return fmt.Sprintf("block %d: %s", be.Height, be.Err)
}

// Unwrap gives errors.Is access to the sentinel.
func (be *BlockError) Unwrap() error {
	return be.Err
}

// IsBlockError checks if an error of type BlockError exists.
func IsBlockError(err error) bool {
	var be *BlockError
	return errors.As(err, &be)
}

// =============================================================================

// Codespace names the admission codes in a Response.
const Codespace = "chain"

// Set of admission codes.
const (
	CodeOK uint32 = iota
	CodeWrongNexus
	CodeWrongChain
	CodeExpired
	CodeEmptyScript
	CodeUnsigned
	CodeBadSignature
	CodeInvalidSender
	CodeDuplicate
	CodeNoBlock
	CodeInternal
)

// Response is the tagged answer to an admission or delivery request.
// Admission failures are expected so they are values, not errors.
type Response struct {
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace,omitempty"`
	Log       string `json:"log,omitempty"`
	GasUsed   uint64 `json:"gas_used,omitempty"`
}

// IsOK reports if the request was accepted.
func (r Response) IsOK() bool {
	return r.Code == CodeOK
}

func reject(code uint32, format string, args ...any) Response {
	return Response{Code: code, Codespace: Codespace, Log: fmt.Sprintf(format, args...)}
}
