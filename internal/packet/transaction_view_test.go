package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func simpleTx() *legacyTxBuilder {
	return newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(1).
		withKeys(keyAt(1), keyAt(computeBudgetProgramID[0])).
		withInstruction(CompiledInstruction{ProgramIDIndex: 0, Data: []byte{0xAB}})
}

func TestParseTransactionView_ParsesWellFormedLegacyTransaction(t *testing.T) {
	payload := simpleTx().bytes()

	view, err := ParseTransactionView(payload)
	require.NoError(t, err)
	require.Len(t, view.Signatures(), 1)
	require.Len(t, view.StaticAccountKeys(), 2)
	require.Len(t, view.Instructions(), 1)
}

func TestParseTransactionView_TruncatedBufferIsMalformed(t *testing.T) {
	payload := simpleTx().bytes()
	payload = payload[:len(payload)-1]

	_, err := ParseTransactionView(payload)
	require.ErrorIs(t, err, ErrMalformedTransaction)
}

func TestParseTransactionView_EmptyBufferIsMalformed(t *testing.T) {
	_, err := ParseTransactionView(nil)
	require.ErrorIs(t, err, ErrMalformedTransaction)
}

func TestTransactionView_Sanitize_RejectsZeroSignatureCount(t *testing.T) {
	payload := newLegacyTx().withNumRequiredSigners(0).withKeys(keyAt(1)).bytes()

	view, err := ParseTransactionView(payload)
	require.NoError(t, err)
	require.ErrorIs(t, view.Sanitize(), ErrFailedSanitize)
}

func TestTransactionView_Sanitize_RejectsAllZeroFirstSignature(t *testing.T) {
	var zero [64]byte
	payload := newLegacyTx().
		withSignature(zero).
		withNumRequiredSigners(1).
		withKeys(keyAt(1)).
		bytes()

	view, err := ParseTransactionView(payload)
	require.NoError(t, err)
	require.ErrorIs(t, view.Sanitize(), ErrFailedSanitize)
}

func TestTransactionView_Sanitize_RejectsSignerCountExceedingKeyCount(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(3).
		withKeys(keyAt(1)).
		bytes()

	view, err := ParseTransactionView(payload)
	require.NoError(t, err)
	require.ErrorIs(t, view.Sanitize(), ErrFailedSanitize)
}

func TestTransactionView_Sanitize_RejectsInstructionIndexOutOfRange(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(1).
		withKeys(keyAt(1)).
		withInstruction(CompiledInstruction{ProgramIDIndex: 5}).
		bytes()

	view, err := ParseTransactionView(payload)
	require.NoError(t, err)
	require.ErrorIs(t, view.Sanitize(), ErrFailedSanitize)
}

func TestTransactionView_Sanitize_AcceptsWellFormedTransaction(t *testing.T) {
	payload := simpleTx().bytes()

	view, err := ParseTransactionView(payload)
	require.NoError(t, err)
	require.NoError(t, view.Sanitize())
}

func TestParseTransactionView_SkipsV0AddressTableLookups(t *testing.T) {
	// Build a v0-marked message directly: signatures, version byte,
	// header, keys, blockhash, instructions, then an address table
	// lookup section that a legacy-only parser would choke on.
	var buf []byte
	buf = appendCompactU16(buf, 1)
	sig := sigAt(1)
	buf = append(buf, sig[:]...)
	buf = append(buf, 0x80) // version 0 marker
	buf = append(buf, 1, 0, 0)
	buf = appendCompactU16(buf, 2)
	k1, k2 := keyAt(1), keyAt(2)
	buf = append(buf, k1[:]...)
	buf = append(buf, k2[:]...)
	var blockhash [32]byte
	buf = append(buf, blockhash[:]...)
	buf = appendCompactU16(buf, 0) // no instructions
	buf = appendCompactU16(buf, 0) // no address table lookups

	view, err := ParseTransactionView(buf)
	require.NoError(t, err)
	require.Len(t, view.StaticAccountKeys(), 2)
}
