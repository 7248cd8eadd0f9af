package analyzer

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"github.com/tradefin-network/riskengine/internal/config"
	"github.com/tradefin-network/riskengine/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAsset(creditScore int, maturity time.Time) *types.TradeAsset {
	return &types.TradeAsset{
		FaceValue:   sdkmath.NewInt(1_000_000),
		Maturity:    maturity,
		CreditScore: creditScore,
		Type:        types.AssetTypeInvoice,
		IsActive:    true,
	}
}

func TestCalculateRiskScore_CreditOnly(t *testing.T) {
	params := config.DefaultRiskParameters

	// creditScore=75, no events, maturity in 90 days: creditRisk only.
	asset := testAsset(75, testNow.Add(90*24*time.Hour))
	result, err := CalculateRiskScore(asset, params.DefaultRiskScore, nil, testNow, params)
	require.NoError(t, err)
	require.Equal(t, int64(2500), result.Score)
	require.Equal(t, int64(2500), result.Components.CreditRisk)
	require.Zero(t, result.Components.MaturityRisk)
	require.Zero(t, result.Components.EventRisk)
	require.False(t, result.Components.UsedDefault)
}

func TestCalculateRiskScore_MaturityPremium(t *testing.T) {
	params := config.DefaultRiskParameters

	// creditScore=60, maturity in 5 days: 4000 credit + 500 maturity.
	asset := testAsset(60, testNow.Add(5*24*time.Hour))
	result, err := CalculateRiskScore(asset, params.DefaultRiskScore, nil, testNow, params)
	require.NoError(t, err)
	require.Equal(t, int64(4500), result.Score)
	require.Equal(t, int64(500), result.Components.MaturityRisk)

	// Already matured asset keeps the premium.
	past := testAsset(60, testNow.Add(-24*time.Hour))
	result, err = CalculateRiskScore(past, params.DefaultRiskScore, nil, testNow, params)
	require.NoError(t, err)
	require.Equal(t, int64(500), result.Components.MaturityRisk)

	// Just outside the window: no premium.
	far := testAsset(60, testNow.Add(8*24*time.Hour))
	result, err = CalculateRiskScore(far, params.DefaultRiskScore, nil, testNow, params)
	require.NoError(t, err)
	require.Zero(t, result.Components.MaturityRisk)
}

func TestCalculateRiskScore_MaturityReevaluatedAtCallTime(t *testing.T) {
	params := config.DefaultRiskParameters
	asset := testAsset(80, testNow.Add(10*24*time.Hour))

	early, err := CalculateRiskScore(asset, params.DefaultRiskScore, nil, testNow, params)
	require.NoError(t, err)

	// Same asset, evaluated a week later: now inside the maturity window.
	later, err := CalculateRiskScore(asset, params.DefaultRiskScore, nil, testNow.Add(7*24*time.Hour), params)
	require.NoError(t, err)
	require.Equal(t, early.Score+params.MaturityRiskPremium, later.Score)
}

func TestCalculateRiskScore_EventContributions(t *testing.T) {
	params := config.DefaultRiskParameters
	asset := testAsset(100, testNow.Add(90*24*time.Hour)) // zero credit risk

	events := []types.RiskEvent{
		{Timestamp: testNow, Severity: 50, IsLatePayment: true},                           // 100
		{Timestamp: testNow, Severity: 40, IsCreditDowngrade: true},                       // 120
		{Timestamp: testNow, Severity: 10, IsLatePayment: true, IsCreditDowngrade: true},  // 20 + 30, both apply
		{Timestamp: testNow, Severity: 90},                                                // no flags, no contribution
	}

	result, err := CalculateRiskScore(asset, params.DefaultRiskScore, events, testNow, params)
	require.NoError(t, err)
	require.Equal(t, int64(270), result.Components.EventRisk)
	require.Equal(t, int64(270), result.Score)
}

func TestCalculateRiskScore_NoActiveAssetUsesDefault(t *testing.T) {
	params := config.DefaultRiskParameters

	events := []types.RiskEvent{{Timestamp: testNow, Severity: 100, IsLatePayment: true}}

	// Event history is ignored for participants without an active asset.
	result, err := CalculateRiskScore(nil, 5000, events, testNow, params)
	require.NoError(t, err)
	require.Equal(t, int64(5000), result.Score)
	require.True(t, result.Components.UsedDefault)

	inactive := testAsset(50, testNow.Add(time.Hour))
	inactive.IsActive = false
	result, err = CalculateRiskScore(inactive, 5000, events, testNow, params)
	require.NoError(t, err)
	require.True(t, result.Components.UsedDefault)
}

func TestCalculateRiskScore_MonotoneInCreditScore(t *testing.T) {
	params := config.DefaultRiskParameters

	prev := int64(-1)
	for credit := 100; credit >= 0; credit-- {
		asset := testAsset(credit, testNow.Add(90*24*time.Hour))
		result, err := CalculateRiskScore(asset, params.DefaultRiskScore, nil, testNow, params)
		require.NoError(t, err)
		require.Greater(t, result.Score, prev, "score must strictly increase as credit quality falls")
		prev = result.Score
	}
}

func TestCalculateRiskScore_RejectsBadInputs(t *testing.T) {
	params := config.DefaultRiskParameters

	// Out-of-range severity in the history is a hard error, not a fixup.
	asset := testAsset(80, testNow.Add(time.Hour))
	_, err := CalculateRiskScore(asset, params.DefaultRiskScore,
		[]types.RiskEvent{{Timestamp: testNow, Severity: 101, IsLatePayment: true}}, testNow, params)
	require.Error(t, err)

	// Degenerate parameters are rejected up front.
	bad := params
	bad.FeeCalibrationScore = 0
	_, err = CalculateRiskScore(asset, params.DefaultRiskScore, nil, testNow, bad)
	require.ErrorIs(t, err, ErrInvalidRiskParameters)
}

func TestValidateRiskParameters_Defaults(t *testing.T) {
	require.NoError(t, ValidateRiskParameters(config.DefaultRiskParameters))
}
