package pipeline

import "errors"

// Error kinds surfaced by TryProcessPacket. Each is non-fatal: the
// packet is dropped, TryProcessPacket itself increments the matching
// Stats counter, and nothing propagates past the pipeline loop.
var (
	ErrAddrNotIPv4           = errors.New("pipeline: address is not ipv4")
	ErrNonTransactionPacket  = errors.New("pipeline: packet has no transaction payload")
	ErrFailedTransactionView = errors.New("pipeline: failed to parse transaction view")
	ErrFailedSanitize        = errors.New("pipeline: transaction view failed sanitize")
	ErrInvalidMetadata       = errors.New("pipeline: invalid packet metadata")
	ErrDuplicatePacket       = errors.New("pipeline: duplicate packet")
	ErrRecentlyProcessed     = errors.New("pipeline: signature recently processed")
)
