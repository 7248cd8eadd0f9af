package engine

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"github.com/tradefin-network/riskengine/internal/collateral"
	"github.com/tradefin-network/riskengine/internal/compliance"
	"github.com/tradefin-network/riskengine/internal/config"
	"github.com/tradefin-network/riskengine/internal/eventlog"
	"github.com/tradefin-network/riskengine/internal/registry"
	"github.com/tradefin-network/riskengine/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testPool  types.PoolID = 42
	testOwner              = "lp-alpha"
)

// fakeJournal records every persistence call and can be told to fail.
type fakeJournal struct {
	pools         int
	assets        int
	healths       int
	events        int
	notifications int
	fail          bool
}

func (j *fakeJournal) err() error {
	if j.fail {
		return errors.New("journal unavailable")
	}
	return nil
}

func (j *fakeJournal) SavePool(types.PoolID, types.PoolComplianceState) error {
	j.pools++
	return j.err()
}

func (j *fakeJournal) SaveAsset(types.ParticipantKey, types.TradeAsset) error {
	j.assets++
	return j.err()
}

func (j *fakeJournal) SaveHealth(types.ParticipantKey, types.CollateralHealth) error {
	j.healths++
	return j.err()
}

func (j *fakeJournal) SaveRiskEvent(types.ParticipantKey, types.RiskEvent) error {
	j.events++
	return j.err()
}

func (j *fakeJournal) SaveNotification(types.Notification) error {
	j.notifications++
	return j.err()
}

func newTestEngine(t *testing.T, journal Journal) *Engine {
	t.Helper()
	e, err := New(Config{
		Params:  config.DefaultRiskParameters,
		Journal: journal,
		Now:     func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return e
}

func activePool(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.OnPoolCreate(testPool))
	require.NoError(t, e.OnPoolActivate(testPool))
}

func testAsset(creditScore int) *types.TradeAsset {
	return &types.TradeAsset{
		FaceValue:        sdkmath.NewInt(500_000),
		Maturity:         testNow.AddDate(0, 2, 0),
		CreditScore:      creditScore,
		Type:             types.AssetTypeLetterOfCredit,
		JurisdictionHash: "feedbeef",
	}
}

func TestNew_RejectsInvalidParameters(t *testing.T) {
	params := config.DefaultRiskParameters
	params.FeeCalibrationScore = 0
	_, err := New(Config{Params: params})
	require.Error(t, err)
}

func TestPoolLifecycle(t *testing.T) {
	e := newTestEngine(t, nil)

	require.NoError(t, e.OnPoolCreate(testPool))
	st, ok := e.PoolState(testPool)
	require.True(t, ok)
	require.True(t, st.IsCompliant, "new pools are compliant by default")
	require.False(t, st.Activated)
	require.Zero(t, st.DefaultRiskScore)

	// Repeat creation must not reset anything.
	require.NoError(t, e.OnPoolActivate(testPool))
	require.NoError(t, e.OnPoolCreate(testPool))

	st, _ = e.PoolState(testPool)
	require.True(t, st.Activated)
	require.Equal(t, int64(5000), st.DefaultRiskScore, "medium-risk baseline set at activation")

	require.ErrorIs(t, e.OnPoolActivate(99), ErrUnknownPool)
}

func TestOnLiquidityAdd_ComplianceGate(t *testing.T) {
	e := newTestEngine(t, nil)

	// Pool was never created: nothing may be registered against it.
	_, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{KycApproved: true})
	require.ErrorIs(t, err, compliance.ErrPoolNotCompliant)

	activePool(t, e)
	_, err = e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved:     false,
		CollateralDelta: sdkmath.NewInt(1_000),
	})
	require.ErrorIs(t, err, compliance.ErrKycRequired)

	_, ok := e.Health(testPool, testOwner)
	require.False(t, ok, "rejected additions leave no collateral record")
}

func TestOnLiquidityAdd_InvalidAssetIsAtomic(t *testing.T) {
	e := newTestEngine(t, nil)
	activePool(t, e)

	bad := testAsset(80)
	bad.FaceValue = sdkmath.ZeroInt()
	_, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved:     true,
		Asset:           bad,
		CollateralDelta: sdkmath.NewInt(10_000),
	})
	require.ErrorIs(t, err, registry.ErrInvalidAsset)

	_, ok := e.Asset(testPool, testOwner)
	require.False(t, ok)
	_, ok = e.Health(testPool, testOwner)
	require.False(t, ok, "the collateral delta of a rejected addition is never applied")
}

func TestOnLiquidityAdd_RegistersAndTracksCollateral(t *testing.T) {
	e := newTestEngine(t, nil)
	activePool(t, e)

	health, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved:     true,
		Asset:           testAsset(80),
		CollateralDelta: sdkmath.NewInt(75_000),
	})
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(75_000), health.TotalCollateral)
	require.Equal(t, types.HealthFactorInfinite, health.HealthFactorBps)

	asset, ok := e.Asset(testPool, testOwner)
	require.True(t, ok)
	require.True(t, asset.IsActive)
}

func TestQueryRiskScoreAndFee(t *testing.T) {
	e := newTestEngine(t, nil)
	activePool(t, e)

	// No active asset: the pool's default baseline applies.
	score, err := e.QueryRiskScore(testPool, testOwner)
	require.NoError(t, err)
	require.True(t, score.Components.UsedDefault)
	require.Equal(t, int64(5000), score.Score)

	fee, err := e.QueryFee(testPool, testOwner)
	require.NoError(t, err)
	require.Equal(t, int64(106), fee)

	// With a registered asset, the credit component replaces the baseline.
	_, err = e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved: true,
		Asset:       testAsset(80),
	})
	require.NoError(t, err)

	score, err = e.QueryRiskScore(testPool, testOwner)
	require.NoError(t, err)
	require.False(t, score.Components.UsedDefault)
	require.Equal(t, int64(2000), score.Score)

	fee, err = e.QueryFee(testPool, testOwner)
	require.NoError(t, err)
	require.Equal(t, int64(48), fee)

	// Queries are pure: repeating them returns identical results.
	again, err := e.QueryRiskScore(testPool, testOwner)
	require.NoError(t, err)
	require.Equal(t, score, again)

	_, err = e.QueryRiskScore(99, testOwner)
	require.ErrorIs(t, err, ErrUnknownPool)
}

func TestAddRiskEvent_FeedsScoring(t *testing.T) {
	e := newTestEngine(t, nil)
	activePool(t, e)
	_, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved: true,
		Asset:       testAsset(80),
	})
	require.NoError(t, err)

	require.ErrorIs(t, e.AddRiskEvent(testPool, testOwner, 101, true, false), eventlog.ErrInvalidSeverity)

	require.NoError(t, e.AddRiskEvent(testPool, testOwner, 10, true, false))
	require.NoError(t, e.AddRiskEvent(testPool, testOwner, 10, false, true))

	score, err := e.QueryRiskScore(testPool, testOwner)
	require.NoError(t, err)
	// 2000 credit + (10x2 late payment) + (10x3 downgrade).
	require.Equal(t, int64(2050), score.Score)
	require.Equal(t, int64(50), score.Components.EventRisk)
	require.Equal(t, 2, score.Components.ScoredEvents)
}

func TestOnSwapPreCheck_RunsLiquidationStep(t *testing.T) {
	e := newTestEngine(t, nil)
	activePool(t, e)

	key := types.ParticipantKey{Pool: testPool, Owner: testOwner}
	e.Restore(Snapshot{
		Healths: map[types.ParticipantKey]types.CollateralHealth{
			key: {
				TotalCollateral: sdkmath.NewInt(100_000),
				TotalDebt:       sdkmath.NewInt(150_000),
				HealthFactorBps: 6666,
				LastUpdate:      testNow,
			},
		},
	})

	require.ErrorIs(t, e.OnLiquidityRemovePreCheck(testPool, testOwner), collateral.ErrLiquidationInProgress)

	quote, err := e.OnSwapPreCheck(testPool, testOwner)
	require.NoError(t, err)
	require.Equal(t, int64(5000), quote.RiskScore)
	require.Equal(t, int64(106), quote.FeeBps)
	require.True(t, quote.LiquidationExecuted)
	require.Equal(t, sdkmath.NewInt(30_000), quote.LiquidatedAmount)

	health, ok := e.Health(testPool, testOwner)
	require.True(t, ok)
	require.Equal(t, sdkmath.NewInt(120_000), health.TotalDebt)
	require.Equal(t, int64(8333), health.HealthFactorBps)

	// Health recovered above the threshold: withdrawals flow again and the
	// next pre-check quotes the fee without touching debt.
	require.NoError(t, e.OnLiquidityRemovePreCheck(testPool, testOwner))

	quote, err = e.OnSwapPreCheck(testPool, testOwner)
	require.NoError(t, err)
	require.False(t, quote.LiquidationExecuted)
	require.True(t, quote.LiquidatedAmount.IsZero())
}

func TestOnSwapPostUpdate_AppliesCollateralDelta(t *testing.T) {
	e := newTestEngine(t, nil)
	activePool(t, e)

	_, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved:     true,
		CollateralDelta: sdkmath.NewInt(40_000),
	})
	require.NoError(t, err)

	health, err := e.OnSwapPostUpdate(testPool, testOwner, sdkmath.NewInt(-15_000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(25_000), health.TotalCollateral)
}

func TestReentrantInvocationRejected(t *testing.T) {
	var nestedErr error
	var e *Engine

	// A sink that calls back into the engine mid-invocation. Sinks run inside
	// lifecycle calls, so the nested invocation must fail fast.
	sink := types.NotificationSinkFunc(func(types.Notification) {
		if nestedErr == nil {
			_, nestedErr = e.OnSwapPostUpdate(testPool, testOwner, sdkmath.NewInt(1))
		}
	})

	var err error
	e, err = New(Config{
		Params: config.DefaultRiskParameters,
		Sink:   sink,
		Now:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	activePool(t, e)

	health, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved:     true,
		CollateralDelta: sdkmath.NewInt(10_000),
	})
	require.NoError(t, err, "the outer invocation completes")
	require.ErrorIs(t, nestedErr, ErrReentrantCall)
	require.Equal(t, sdkmath.NewInt(10_000), health.TotalCollateral,
		"the nested call mutated nothing")

	// The guard releases once the outer invocation returns.
	health, err = e.OnSwapPostUpdate(testPool, testOwner, sdkmath.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(10_001), health.TotalCollateral)
}

func TestJournal_FailuresDoNotAbort(t *testing.T) {
	journal := &fakeJournal{fail: true}
	e := newTestEngine(t, journal)
	activePool(t, e)

	_, err := e.OnLiquidityAdd(testPool, testOwner, LiquidityPayload{
		KycApproved:     true,
		Asset:           testAsset(70),
		CollateralDelta: sdkmath.NewInt(5_000),
	})
	require.NoError(t, err, "persistence failure never fails the lifecycle call")
	require.NoError(t, e.AddRiskEvent(testPool, testOwner, 5, true, false))

	require.Equal(t, 2, journal.pools)
	require.Equal(t, 1, journal.assets)
	require.Positive(t, journal.healths)
	require.Equal(t, 1, journal.events)
	require.Positive(t, journal.notifications)
}

func TestRestore_RoundTrip(t *testing.T) {
	e := newTestEngine(t, nil)
	key := types.ParticipantKey{Pool: testPool, Owner: testOwner}

	restoredAsset := *testAsset(90)
	restoredAsset.IsActive = true

	e.Restore(Snapshot{
		Pools: map[types.PoolID]types.PoolComplianceState{
			testPool: {IsCompliant: true, DefaultRiskScore: 5000, Activated: true},
		},
		Assets: map[types.ParticipantKey]types.TradeAsset{
			key: restoredAsset,
		},
		Healths: map[types.ParticipantKey]types.CollateralHealth{
			key: {
				TotalCollateral: sdkmath.NewInt(9_000),
				TotalDebt:       sdkmath.ZeroInt(),
				HealthFactorBps: types.HealthFactorInfinite,
			},
		},
		Events: map[types.ParticipantKey][]types.RiskEvent{
			key: {{Timestamp: testNow.AddDate(0, 0, -1), Severity: 4, IsLatePayment: true}},
		},
	})

	st, ok := e.PoolState(testPool)
	require.True(t, ok)
	require.True(t, st.Activated)

	score, err := e.QueryRiskScore(testPool, testOwner)
	require.NoError(t, err)
	require.Equal(t, 1, score.Components.ScoredEvents)
}
