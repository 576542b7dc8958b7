package packet

import (
	"encoding/binary"
	"math/bits"
)

// computeBudgetProgramID is the well-known ComputeBudget111111111111111111111111111111
// program address, base58-decoded once at compile time.
var computeBudgetProgramID = [pubkeySize]byte{
	3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231,
	188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0,
}

const (
	setComputeUnitLimitDiscriminator = 0x2
	setComputeUnitPriceDiscriminator = 0x3

	defaultRequestedCUs = 200_000
	defaultCUPrice      = 0

	lamportsPerSignature = 5000
)

// Fee holds the compute-budget-derived fee inputs extracted from a
// transaction's first few instructions.
type Fee struct {
	TotalFee     uint64
	RequestedCUs uint32
	CUPrice      uint64
}

// FeePayer returns the transaction's first static account key, the
// account that pays its fee, or false if the view has no keys (which
// Sanitize should already have rejected).
func FeePayer(v *TransactionView) ([pubkeySize]byte, bool) {
	keys := v.StaticAccountKeys()
	if len(keys) == 0 {
		var zero [pubkeySize]byte
		return zero, false
	}
	return keys[0], true
}

// TotalFee scans the first 8 instructions for ComputeBudget
// SetComputeUnitLimit/SetComputeUnitPrice calls and derives the
// transaction's total fee. A repeated instruction of either kind is
// ignored past the first occurrence — the scan keeps going but never
// overwrites an already-found value.
func TotalFee(v *TransactionView) Fee {
	var requestedCUs *uint32
	var cuPrice *uint64

	instructions := v.Instructions()
	keys := v.StaticAccountKeys()
	n := len(instructions)
	if n > maxInstrToScan {
		n = maxInstrToScan
	}

	for i := 0; i < n; i++ {
		ix := instructions[i]
		if int(ix.ProgramIDIndex) >= len(keys) || keys[ix.ProgramIDIndex] != computeBudgetProgramID {
			continue
		}
		switch {
		case len(ix.Data) == 5 && ix.Data[0] == setComputeUnitLimitDiscriminator:
			if requestedCUs == nil {
				v := binary.LittleEndian.Uint32(ix.Data[1:5])
				requestedCUs = &v
			}
		case len(ix.Data) == 9 && ix.Data[0] == setComputeUnitPriceDiscriminator:
			if cuPrice == nil {
				v := binary.LittleEndian.Uint64(ix.Data[1:9])
				cuPrice = &v
			}
		}
	}

	cus := uint32(defaultRequestedCUs)
	if requestedCUs != nil {
		cus = *requestedCUs
	}
	price := uint64(defaultCUPrice)
	if cuPrice != nil {
		price = *cuPrice
	}

	signatureCost := lamportsPerSignature * uint64(len(v.Signatures()))

	// 128-bit intermediate multiplication, clamped to u64::MAX before
	// adding the signature cost, mirrors the source's u128 arithmetic
	// and avoids silently wrapping on pathological cu_price values. The
	// sum with the signature cost saturates at u64::MAX as well.
	hi, lo := bits.Mul64(uint64(cus), price)
	priceComponent := clampedDiv1e6(hi, lo)

	totalFee := signatureCost + priceComponent
	if totalFee < signatureCost {
		totalFee = ^uint64(0)
	}

	return Fee{
		TotalFee:     totalFee,
		RequestedCUs: cus,
		CUPrice:      price,
	}
}

// clampedDiv1e6 divides the 128-bit (hi,lo) value by 1_000_000,
// clamping to math.MaxUint64 if the quotient itself would overflow 64
// bits.
func clampedDiv1e6(hi, lo uint64) uint64 {
	const divisor = 1_000_000
	if hi >= divisor {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, divisor)
	return q
}
