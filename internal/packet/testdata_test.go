package packet

import "encoding/binary"

// appendCompactU16 encodes n using Solana's short-vec varint scheme.
func appendCompactU16(buf []byte, n int) []byte {
	v := uint32(n)
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

// legacyTxBuilder assembles a minimal well-formed legacy (non-versioned)
// Solana transaction byte stream for exercising ParseTransactionView
// and the fee/fee-payer scanners without depending on a real signer.
type legacyTxBuilder struct {
	signatures [][64]byte
	numSigners int
	keys       [][32]byte
	instrs     []CompiledInstruction
}

func newLegacyTx() *legacyTxBuilder {
	return &legacyTxBuilder{}
}

func (b *legacyTxBuilder) withSignature(sig [64]byte) *legacyTxBuilder {
	b.signatures = append(b.signatures, sig)
	return b
}

func (b *legacyTxBuilder) withKeys(keys ...[32]byte) *legacyTxBuilder {
	b.keys = append(b.keys, keys...)
	return b
}

func (b *legacyTxBuilder) withNumRequiredSigners(n int) *legacyTxBuilder {
	b.numSigners = n
	return b
}

func (b *legacyTxBuilder) withInstruction(ix CompiledInstruction) *legacyTxBuilder {
	b.instrs = append(b.instrs, ix)
	return b
}

func (b *legacyTxBuilder) bytes() []byte {
	var buf []byte

	buf = appendCompactU16(buf, len(b.signatures))
	for _, sig := range b.signatures {
		buf = append(buf, sig[:]...)
	}

	buf = append(buf, byte(b.numSigners)) // num_required_signatures
	buf = append(buf, 0)                  // num_readonly_signed_accounts
	buf = append(buf, 0)                  // num_readonly_unsigned_accounts

	buf = appendCompactU16(buf, len(b.keys))
	for _, k := range b.keys {
		buf = append(buf, k[:]...)
	}

	var blockhash [32]byte
	buf = append(buf, blockhash[:]...)

	buf = appendCompactU16(buf, len(b.instrs))
	for _, ix := range b.instrs {
		buf = append(buf, ix.ProgramIDIndex)
		buf = appendCompactU16(buf, len(ix.AccountIndexes))
		buf = append(buf, ix.AccountIndexes...)
		buf = appendCompactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}

	return buf
}

func setComputeUnitLimitData(limit uint32) []byte {
	data := make([]byte, 5)
	data[0] = setComputeUnitLimitDiscriminator
	binary.LittleEndian.PutUint32(data[1:], limit)
	return data
}

func setComputeUnitPriceData(price uint64) []byte {
	data := make([]byte, 9)
	data[0] = setComputeUnitPriceDiscriminator
	binary.LittleEndian.PutUint64(data[1:], price)
	return data
}

func keyAt(b byte) [32]byte {
	var k [32]byte
	k[0] = b
	return k
}

func sigAt(b byte) [64]byte {
	var s [64]byte
	s[0] = b
	return s
}
