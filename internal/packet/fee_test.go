package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeePayer_ReturnsFirstStaticAccountKey(t *testing.T) {
	view, err := ParseTransactionView(simpleTx().bytes())
	require.NoError(t, err)

	payer, ok := FeePayer(view)
	require.True(t, ok)
	require.Equal(t, keyAt(1), payer)
}

func TestTotalFee_UsesDefaultsWhenNoComputeBudgetInstructionsPresent(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(1).
		withKeys(keyAt(1)).
		bytes()
	view, err := ParseTransactionView(payload)
	require.NoError(t, err)

	fee := TotalFee(view)
	require.Equal(t, uint32(defaultRequestedCUs), fee.RequestedCUs)
	require.Equal(t, uint64(defaultCUPrice), fee.CUPrice)
	require.Equal(t, uint64(lamportsPerSignature), fee.TotalFee)
}

func TestTotalFee_ExtractsComputeUnitLimitAndPrice(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(1).
		withKeys(keyAt(1), computeBudgetProgramID).
		withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitLimitData(100_000)}).
		withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitPriceData(1_000_000)}).
		bytes()
	view, err := ParseTransactionView(payload)
	require.NoError(t, err)

	fee := TotalFee(view)
	require.Equal(t, uint32(100_000), fee.RequestedCUs)
	require.Equal(t, uint64(1_000_000), fee.CUPrice)
	// signature_cost(5000) + min(100_000*1_000_000/1_000_000, max) = 5000 + 100_000
	require.Equal(t, uint64(5_000+100_000), fee.TotalFee)
}

func TestTotalFee_IgnoresInstructionsPastTheFirstEight(t *testing.T) {
	b := newLegacyTx().withSignature(sigAt(1)).withNumRequiredSigners(1).
		withKeys(keyAt(1), computeBudgetProgramID)
	for i := 0; i < 8; i++ {
		b = b.withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: []byte{0xFF}}) // non-matching filler
	}
	b = b.withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitLimitData(999)})
	view, err := ParseTransactionView(b.bytes())
	require.NoError(t, err)

	fee := TotalFee(view)
	// The 9th instruction (index 8) is past the 8-instruction scan window.
	require.Equal(t, uint32(defaultRequestedCUs), fee.RequestedCUs)
}

func TestTotalFee_DuplicateSetComputeUnitLimitKeepsFirstValue(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(1).
		withKeys(keyAt(1), computeBudgetProgramID).
		withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitLimitData(111)}).
		withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitLimitData(222)}).
		bytes()
	view, err := ParseTransactionView(payload)
	require.NoError(t, err)

	fee := TotalFee(view)
	require.Equal(t, uint32(111), fee.RequestedCUs)
}

func TestTotalFee_SignatureCostScalesWithSignatureCount(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withSignature(sigAt(2)).
		withNumRequiredSigners(2).
		withKeys(keyAt(1), keyAt(2)).
		bytes()
	view, err := ParseTransactionView(payload)
	require.NoError(t, err)

	fee := TotalFee(view)
	require.Equal(t, uint64(2*lamportsPerSignature), fee.TotalFee)
}

func TestTotalFee_ClampsPriceComponentAtUint64Max(t *testing.T) {
	payload := newLegacyTx().
		withSignature(sigAt(1)).
		withNumRequiredSigners(1).
		withKeys(keyAt(1), computeBudgetProgramID).
		withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitLimitData(^uint32(0))}).
		withInstruction(CompiledInstruction{ProgramIDIndex: 1, Data: setComputeUnitPriceData(^uint64(0))}).
		bytes()
	view, err := ParseTransactionView(payload)
	require.NoError(t, err)

	fee := TotalFee(view)
	require.Equal(t, ^uint64(0), fee.TotalFee)
}

func TestClampedDiv1e6_DividesWithinRange(t *testing.T) {
	require.Equal(t, uint64(1_000_000), clampedDiv1e6(0, 1_000_000_000_000))
}

func TestClampedDiv1e6_ClampsWhenQuotientOverflowsUint64(t *testing.T) {
	require.Equal(t, ^uint64(0), clampedDiv1e6(1_000_000, 0))
}
