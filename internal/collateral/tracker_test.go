package collateral

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"github.com/tradefin-network/riskengine/internal/config"
	"github.com/tradefin-network/riskengine/internal/types"
)

var testKey = types.ParticipantKey{Pool: 7, Owner: "lp-beta"}

// recorder captures notifications for assertions.
type recorder struct {
	notifications []types.Notification
}

func (r *recorder) Notify(n types.Notification) {
	r.notifications = append(r.notifications, n)
}

func newTestTracker() (*Tracker, *recorder) {
	rec := &recorder{}
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return New(config.DefaultRiskParameters, rec, now), rec
}

func withDebt(t *testing.T, tr *Tracker, collateral, debt int64) types.CollateralHealth {
	t.Helper()
	debtDelta := sdkmath.NewInt(debt)
	return tr.ApplyDelta(testKey, sdkmath.NewInt(collateral), &debtDelta)
}

func TestApplyDelta_CreatesLazilyWithInfiniteHealth(t *testing.T) {
	tr, rec := newTestTracker()

	health := tr.ApplyDelta(testKey, sdkmath.NewInt(50_000), nil)
	require.Equal(t, sdkmath.NewInt(50_000), health.TotalCollateral)
	require.True(t, health.TotalDebt.IsZero())
	require.Equal(t, types.HealthFactorInfinite, health.HealthFactorBps)
	require.Equal(t, types.HealthStateNoDebt, tr.State(testKey))

	require.Len(t, rec.notifications, 1)
	require.Equal(t, types.NotificationHealthUpdated, rec.notifications[0].Type)
}

func TestApplyDelta_CollateralFloorsAtZero(t *testing.T) {
	tr, _ := newTestTracker()

	tr.ApplyDelta(testKey, sdkmath.NewInt(1_000), nil)
	health := tr.ApplyDelta(testKey, sdkmath.NewInt(-5_000), nil)
	require.True(t, health.TotalCollateral.IsZero(), "loss beyond balance truncates at zero")
}

func TestApplyDelta_HealthFactorRatio(t *testing.T) {
	tr, _ := newTestTracker()

	health := withDebt(t, tr, 100_000, 150_000)
	require.Equal(t, int64(6666), health.HealthFactorBps)
	require.Equal(t, types.HealthStateAtRisk, tr.State(testKey))
}

func TestRunLiquidationStep_ScenarioToHealthy(t *testing.T) {
	tr, rec := newTestTracker()

	withDebt(t, tr, 100_000, 150_000)
	rec.notifications = nil

	health, amount, executed := tr.RunLiquidationStep(testKey)
	require.True(t, executed)
	require.Equal(t, sdkmath.NewInt(30_000), amount, "one step retires exactly 20% of debt")
	require.Equal(t, sdkmath.NewInt(120_000), health.TotalDebt)
	require.Equal(t, int64(8333), health.HealthFactorBps)
	require.Equal(t, types.HealthStateHealthy, tr.State(testKey))

	// Liquidation-executed notification followed by the health update.
	require.Len(t, rec.notifications, 2)
	require.Equal(t, types.NotificationLiquidationExecuted, rec.notifications[0].Type)
	require.Equal(t, sdkmath.NewInt(30_000), rec.notifications[0].Amount)
	require.Equal(t, types.NotificationHealthUpdated, rec.notifications[1].Type)
	require.Equal(t, int64(8333), rec.notifications[1].HealthFactorBps)
}

func TestRunLiquidationStep_MayStayAtRisk(t *testing.T) {
	tr, _ := newTestTracker()

	// Deep underwater: one partial step is not enough.
	withDebt(t, tr, 10_000, 100_000)
	health, amount, executed := tr.RunLiquidationStep(testKey)
	require.True(t, executed)
	require.Equal(t, sdkmath.NewInt(20_000), amount)
	require.Equal(t, sdkmath.NewInt(80_000), health.TotalDebt)
	require.Equal(t, types.HealthStateAtRisk, tr.State(testKey), "no loop to convergence within one evaluation")
}

func TestRunLiquidationStep_NoOpWhenNotAtRisk(t *testing.T) {
	tr, rec := newTestTracker()

	// No record at all.
	_, _, executed := tr.RunLiquidationStep(testKey)
	require.False(t, executed)

	// Healthy participant.
	withDebt(t, tr, 200_000, 100_000)
	rec.notifications = nil
	_, _, executed = tr.RunLiquidationStep(testKey)
	require.False(t, executed)

	// Debt-free participant.
	other := types.ParticipantKey{Pool: 7, Owner: "lp-gamma"}
	tr.ApplyDelta(other, sdkmath.NewInt(1_000), nil)
	rec.notifications = nil
	_, _, executed = tr.RunLiquidationStep(other)
	require.False(t, executed)
	require.Empty(t, rec.notifications, "no-op emits nothing")
}

func TestCheckWithdrawal_GateFollowsHealthFactor(t *testing.T) {
	tr, _ := newTestTracker()

	// Unknown participant: nothing to gate.
	require.NoError(t, tr.CheckWithdrawal(testKey))

	withDebt(t, tr, 100_000, 150_000)
	require.ErrorIs(t, tr.CheckWithdrawal(testKey), ErrLiquidationInProgress)

	// The gate clears only once the factor is back over the threshold.
	_, _, executed := tr.RunLiquidationStep(testKey)
	require.True(t, executed)
	require.NoError(t, tr.CheckWithdrawal(testKey))
}

func TestHealthFactorBps_Saturates(t *testing.T) {
	require.Equal(t, types.HealthFactorInfinite, HealthFactorBps(sdkmath.NewInt(1), sdkmath.ZeroInt()))

	// collateral x 10000 / 1 with a huge collateral clamps instead of overflowing.
	huge := sdkmath.NewIntFromUint64(1 << 62).MulRaw(1 << 2)
	require.Equal(t, types.HealthFactorInfinite, HealthFactorBps(huge, sdkmath.OneInt()))
}
