package packet

import (
	"bytes"
	"errors"
)

// Errors returned while building and sanitizing a TransactionView.
// ParseTransactionView distinguishes a malformed byte stream
// (ErrMalformedTransaction) from sanitize-time rejection
// (ErrFailedSanitize) because the pipeline counts them separately.
var (
	ErrMalformedTransaction = errors.New("packet: malformed transaction bytes")
	ErrFailedSanitize       = errors.New("packet: transaction failed sanitize checks")
)

const (
	signatureSize  = 64
	pubkeySize     = 32
	versionedFlag  = 0x80 // top bit of the first message byte marks a v0 message
	maxInstrToScan = 8
)

// CompiledInstruction is one instruction inside a transaction message:
// an index into StaticAccountKeys for the target program, an index
// list into the same key table for its accounts, and an opaque data
// payload.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []byte
	Data           []byte
}

// TransactionView is an unsanitized view over a transaction packet's
// payload: instruction account indexes and data are slices into the
// original buffer, while signatures and static account keys are copied
// out. Call Sanitize before trusting anything it reports.
type TransactionView struct {
	raw []byte

	signatures         [][signatureSize]byte
	staticAccountKeys  [][pubkeySize]byte
	instructions       []CompiledInstruction
	numRequiredSigners uint8
}

// Signatures returns the transaction's signature list, first entry
// first. Sanitize guarantees at least one.
func (v *TransactionView) Signatures() [][signatureSize]byte { return v.signatures }

// StaticAccountKeys returns the transaction message's statically
// listed account keys (legacy transactions list all accounts this
// way; v0 transactions list only the non-looked-up ones, which still
// always includes the fee payer at index 0).
func (v *TransactionView) StaticAccountKeys() [][pubkeySize]byte { return v.staticAccountKeys }

// Instructions returns the message's compiled instruction list.
func (v *TransactionView) Instructions() []CompiledInstruction { return v.instructions }

// ParseTransactionView decodes payload as a Solana wire-format
// transaction without validating cross-references (out-of-range
// account indexes, empty key tables): that's Sanitize's job. A
// malformed byte stream (truncated compact-array lengths, length
// counts that overrun the buffer) reports ErrMalformedTransaction.
func ParseTransactionView(payload []byte) (*TransactionView, error) {
	r := &byteReader{buf: payload}

	sigCount, err := r.readCompactU16()
	if err != nil {
		return nil, err
	}
	signatures := make([][signatureSize]byte, sigCount)
	for i := range signatures {
		sig, err := r.readN(signatureSize)
		if err != nil {
			return nil, err
		}
		copy(signatures[i][:], sig)
	}

	if r.remaining() == 0 {
		return nil, ErrMalformedTransaction
	}
	versionByte := r.buf[r.pos]
	versioned := versionByte&versionedFlag != 0
	if versioned {
		// Consume the version-marker byte; only v0 is understood,
		// anything else is treated as malformed rather than guessed at.
		if versionByte&0x7F != 0 {
			return nil, ErrMalformedTransaction
		}
		r.pos++
	}

	numRequiredSigners, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if _, err := r.readByte(); err != nil { // num_readonly_signed_accounts
		return nil, err
	}
	if _, err := r.readByte(); err != nil { // num_readonly_unsigned_accounts
		return nil, err
	}

	keyCount, err := r.readCompactU16()
	if err != nil {
		return nil, err
	}
	staticAccountKeys := make([][pubkeySize]byte, keyCount)
	for i := range staticAccountKeys {
		key, err := r.readN(pubkeySize)
		if err != nil {
			return nil, err
		}
		copy(staticAccountKeys[i][:], key)
	}

	if _, err := r.readN(pubkeySize); err != nil { // recent_blockhash
		return nil, err
	}

	instrCount, err := r.readCompactU16()
	if err != nil {
		return nil, err
	}
	instructions := make([]CompiledInstruction, instrCount)
	for i := range instructions {
		programIDIndex, err := r.readByte()
		if err != nil {
			return nil, err
		}
		accCount, err := r.readCompactU16()
		if err != nil {
			return nil, err
		}
		accIdx, err := r.readN(int(accCount))
		if err != nil {
			return nil, err
		}
		dataLen, err := r.readCompactU16()
		if err != nil {
			return nil, err
		}
		data, err := r.readN(int(dataLen))
		if err != nil {
			return nil, err
		}
		instructions[i] = CompiledInstruction{
			ProgramIDIndex: programIDIndex,
			AccountIndexes: accIdx,
			Data:           data,
		}
	}

	if versioned {
		// Address table lookups follow; they extend the runtime account
		// list with looked-up keys, which never affects StaticAccountKeys
		// or the fee payer, so they're skipped rather than parsed.
		lookupCount, err := r.readCompactU16()
		if err != nil {
			return nil, err
		}
		for i := uint16(0); i < lookupCount; i++ {
			if _, err := r.readN(pubkeySize); err != nil { // account key
				return nil, err
			}
			writableLen, err := r.readCompactU16()
			if err != nil {
				return nil, err
			}
			if _, err := r.readN(int(writableLen)); err != nil {
				return nil, err
			}
			readonlyLen, err := r.readCompactU16()
			if err != nil {
				return nil, err
			}
			if _, err := r.readN(int(readonlyLen)); err != nil {
				return nil, err
			}
		}
	}

	return &TransactionView{
		raw:                payload,
		signatures:         signatures,
		staticAccountKeys:  staticAccountKeys,
		instructions:       instructions,
		numRequiredSigners: numRequiredSigners,
	}, nil
}

// Sanitize rejects a structurally-decoded view that can't be a valid
// transaction: no signatures, fewer keys than required signers, a
// zero signature that would make SigKey meaningless, or an
// instruction indexing outside the static key table.
func (v *TransactionView) Sanitize() error {
	if len(v.signatures) == 0 {
		return ErrFailedSanitize
	}
	if len(v.staticAccountKeys) == 0 {
		return ErrFailedSanitize
	}
	if int(v.numRequiredSigners) > len(v.staticAccountKeys) {
		return ErrFailedSanitize
	}
	if len(v.signatures) != int(v.numRequiredSigners) {
		return ErrFailedSanitize
	}
	var zero [signatureSize]byte
	if bytes.Equal(v.signatures[0][:], zero[:]) {
		return ErrFailedSanitize
	}
	for _, ix := range v.instructions {
		if int(ix.ProgramIDIndex) >= len(v.staticAccountKeys) {
			return ErrFailedSanitize
		}
		for _, idx := range ix.AccountIndexes {
			if int(idx) >= len(v.staticAccountKeys) {
				return ErrFailedSanitize
			}
		}
	}
	return nil
}

// byteReader is a small cursor over a borrowed byte slice, used only
// while decoding a transaction view. It never copies beyond the
// sub-slices it hands back.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) remaining() int { return len(r.buf) - r.pos }

func (r *byteReader) readByte() (uint8, error) {
	if r.remaining() < 1 {
		return 0, ErrMalformedTransaction
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) readN(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrMalformedTransaction
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readCompactU16 decodes Solana's "short-vec" compact-u16 varint: up
// to three bytes, 7 payload bits each, continuation in the high bit.
func (r *byteReader) readCompactU16() (uint16, error) {
	var result uint32
	for shift := 0; shift < 21; shift += 7 {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			if result > 0xFFFF {
				return 0, ErrMalformedTransaction
			}
			return uint16(result), nil
		}
	}
	return 0, ErrMalformedTransaction
}
