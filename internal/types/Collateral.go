/*

This file contains the types for tracking per-participant collateral and debt,
and the derived health factor consumed by the soft-liquidation machinery.

*/

package types

import (
	"math"
	"time"

	sdkmath "cosmossdk.io/math"
)

// HealthFactorInfinite is the sentinel health factor for participants with no
// outstanding debt. Ratio math saturates here rather than overflowing.
const HealthFactorInfinite int64 = math.MaxInt64

// HealthState classifies a participant for the soft-liquidation state machine.
type HealthState string

const (
	HealthStateHealthy HealthState = "HEALTHY" // healthFactor >= threshold
	HealthStateAtRisk  HealthState = "AT_RISK" // healthFactor < threshold with debt outstanding
	HealthStateNoDebt  HealthState = "NO_DEBT" // no debt, liquidation inapplicable
)

// CollateralHealth is the per-participant collateral/debt record.
// HealthFactorBps is collateral x 10000 / debt when debt > 0, else
// HealthFactorInfinite. Collateral never goes negative; decreases past the
// current balance floor it at zero.
type CollateralHealth struct {
	TotalCollateral sdkmath.Int `json:"total_collateral"`
	TotalDebt       sdkmath.Int `json:"total_debt"`
	HealthFactorBps int64       `json:"health_factor_bps"`
	LastUpdate      time.Time   `json:"last_update"`
}

// State derives the liquidation state for a given healthy threshold.
func (h CollateralHealth) State(healthyThresholdBps int64) HealthState {
	if h.TotalDebt.IsNil() || h.TotalDebt.IsZero() {
		return HealthStateNoDebt
	}
	if h.HealthFactorBps < healthyThresholdBps {
		return HealthStateAtRisk
	}
	return HealthStateHealthy
}
