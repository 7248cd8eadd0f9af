/*

This file contains the collateral health tracker and the soft-liquidation
state machine. The tracker owns the per-participant collateral/debt records
and recomputes the health factor on every balance-changing event; the
liquidation step retires a bounded fraction of debt when health degrades
below the threshold.

*/

package collateral

import (
	"errors"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/types"
	"github.com/tradefin-network/riskengine/internal/utils"
)

var ErrLiquidationInProgress = errors.New("liquidation in progress")

var healthLogger = logger.GetForComponent("collateral_tracker")

// Tracker is the keyed store of collateral health records. Records are
// created lazily on the first balance-changing event for a participant.
type Tracker struct {
	healths map[types.ParticipantKey]types.CollateralHealth
	params  types.RiskParameters
	sink    types.NotificationSink
	now     func() time.Time
}

// New creates an empty tracker. The sink may be nil.
func New(params types.RiskParameters, sink types.NotificationSink, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		healths: make(map[types.ParticipantKey]types.CollateralHealth),
		params:  params,
		sink:    sink,
		now:     now,
	}
}

// ApplyDelta adds collateralDelta to the participant's collateral, floored at
// zero (a decrease past the current balance zeroes it rather than going
// negative), applies the debt delta if one is supplied, recomputes the health
// factor and stamps the update time. Always succeeds; emits a health-updated
// notification.
func (t *Tracker) ApplyDelta(key types.ParticipantKey, collateralDelta sdkmath.Int, debtDelta *sdkmath.Int) types.CollateralHealth {
	health := t.getOrInit(key)

	health.TotalCollateral = health.TotalCollateral.Add(collateralDelta)
	if health.TotalCollateral.IsNegative() {
		health.TotalCollateral = sdkmath.ZeroInt()
	}

	if debtDelta != nil {
		health.TotalDebt = health.TotalDebt.Add(*debtDelta)
		if health.TotalDebt.IsNegative() {
			health.TotalDebt = sdkmath.ZeroInt()
		}
	}

	t.finalize(key, &health)
	return health
}

// RunLiquidationStep executes one soft-liquidation step when the participant
// is AtRisk: it retires min(debt, debt x stepBps / 10000) of debt and
// recomputes the health factor. A single step may leave the participant still
// AtRisk; there is no loop to convergence within one evaluation. No-op when
// the participant has no debt or is already healthy.
func (t *Tracker) RunLiquidationStep(key types.ParticipantKey) (types.CollateralHealth, sdkmath.Int, bool) {
	health, ok := t.healths[key]
	if !ok || health.State(t.params.HealthyThresholdBps) != types.HealthStateAtRisk {
		return health, sdkmath.ZeroInt(), false
	}

	amount := utils.BpsShare(health.TotalDebt, t.params.LiquidationStepBps)
	if amount.GT(health.TotalDebt) {
		amount = health.TotalDebt
	}

	health.TotalDebt = health.TotalDebt.Sub(amount)

	healthLogger.Info().
		Uint64("pool", uint64(key.Pool)).
		Str("owner", key.Owner).
		Str("liquidatedAmount", amount.String()).
		Str("remainingDebt", health.TotalDebt.String()).
		Msg("Soft liquidation step executed")

	if t.sink != nil {
		t.sink.Notify(types.Notification{
			Type:      types.NotificationLiquidationExecuted,
			Pool:      key.Pool,
			Owner:     key.Owner,
			Timestamp: t.now(),
			Amount:    amount,
		})
	}

	t.finalize(key, &health)
	return health, amount, true
}

// CheckWithdrawal is the withdrawal gate: it rejects any liquidity removal
// while the participant's health factor is below the healthy threshold,
// regardless of the requested size and of whether a liquidation step has run
// in the current evaluation cycle. Read-only.
func (t *Tracker) CheckWithdrawal(key types.ParticipantKey) error {
	health, ok := t.healths[key]
	if !ok {
		return nil
	}
	if health.HealthFactorBps < t.params.HealthyThresholdBps {
		healthLogger.Debug().
			Uint64("pool", uint64(key.Pool)).
			Str("owner", key.Owner).
			Int64("healthFactorBps", health.HealthFactorBps).
			Msg("Withdrawal blocked while under liquidation threshold")
		return ErrLiquidationInProgress
	}
	return nil
}

// Get returns the health record for the key, if one exists.
func (t *Tracker) Get(key types.ParticipantKey) (types.CollateralHealth, bool) {
	health, ok := t.healths[key]
	return health, ok
}

// State classifies the participant for the liquidation state machine. A
// participant with no record has no debt.
func (t *Tracker) State(key types.ParticipantKey) types.HealthState {
	health, ok := t.healths[key]
	if !ok {
		return types.HealthStateNoDebt
	}
	return health.State(t.params.HealthyThresholdBps)
}

// Restore seeds the tracker from persisted state. Used at warm start only.
func (t *Tracker) Restore(healths map[types.ParticipantKey]types.CollateralHealth) {
	for key, health := range healths {
		t.healths[key] = health
	}
}

func (t *Tracker) getOrInit(key types.ParticipantKey) types.CollateralHealth {
	if health, ok := t.healths[key]; ok {
		return health
	}
	return types.CollateralHealth{
		TotalCollateral: sdkmath.ZeroInt(),
		TotalDebt:       sdkmath.ZeroInt(),
		HealthFactorBps: types.HealthFactorInfinite,
	}
}

// finalize recomputes the health factor, stamps the update time, stores the
// record, and emits the health-updated notification.
func (t *Tracker) finalize(key types.ParticipantKey, health *types.CollateralHealth) {
	health.HealthFactorBps = HealthFactorBps(health.TotalCollateral, health.TotalDebt)
	health.LastUpdate = t.now()
	t.healths[key] = *health

	healthLogger.Debug().
		Uint64("pool", uint64(key.Pool)).
		Str("owner", key.Owner).
		Str("totalCollateral", health.TotalCollateral.String()).
		Str("totalDebt", health.TotalDebt.String()).
		Int64("healthFactorBps", health.HealthFactorBps).
		Msg("Collateral health updated")

	if t.sink != nil {
		t.sink.Notify(types.Notification{
			Type:            types.NotificationHealthUpdated,
			Pool:            key.Pool,
			Owner:           key.Owner,
			Timestamp:       health.LastUpdate,
			HealthFactorBps: health.HealthFactorBps,
		})
	}
}

// HealthFactorBps computes collateral x 10000 / debt, or the infinite
// sentinel when there is no debt. Saturates instead of overflowing.
func HealthFactorBps(collateral, debt sdkmath.Int) int64 {
	if debt.IsNil() || debt.IsZero() {
		return types.HealthFactorInfinite
	}
	return utils.RatioBps(collateral, debt)
}
