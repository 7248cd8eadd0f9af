/*

This file contains the default risk parameters for the engine.

These values come from the calibrated trade-finance risk policy: credit and
severity scales run 0-100, ratio math runs in basis points, and the fee range
is clamped to a band the surrounding pool can absorb on every swap.

*/

package config

import (
	"github.com/tradefin-network/riskengine/internal/types"
)

// DefaultRiskParameters provides the baseline parameter set for the engine's
// scoring, fee, and liquidation logic. These values are used if no active
// parameters are found in the database during initialization.
var DefaultRiskParameters = types.RiskParameters{
	// --- Credit Risk ---
	CreditScoreCeiling: 100, // Credit scores run 0-100 inclusive; anything above is rejected at registration.

	CreditRiskMultiplier: 100, // A participant at the bottom of the credit scale contributes 10000 score points.
	// A one-point credit downgrade moves the score by a full 100 points, so credit
	// quality dominates the composite for participants with clean event histories.

	// --- Maturity Risk ---
	MaturityWindowDays: 7, // Assets maturing within a week carry settlement risk regardless of credit quality.

	MaturityRiskPremium: 500, // Flat premium once inside the window, re-evaluated at every call.
	// The premium is deliberately flat rather than sloped: settlement risk on trade
	// paper is a cliff at the window edge, not a gradient.

	// --- Event Risk ---
	LatePaymentMultiplier:     2, // Late payments are recoverable; weighted below downgrades.
	CreditDowngradeMultiplier: 3, // Downgrades signal structural deterioration and weigh heaviest.
	SeverityCeiling:           100,
	EventWindowDays:           30, // Only the trailing month of events is scored.
	MaxScoredEvents:           10, // Scan cap: at most the 10 most recently appended in-window events.

	// --- Dynamic Fee ---
	MinFeeBps:           10,  // Floor: even a riskless participant pays 10 bps.
	MaxFeeBps:           300, // Ceiling: the fee saturates at 3% however high the score runs.
	FeeSlopeBps:         290, // Fee range spanned between a zero score and the calibration score.
	FeeCalibrationScore: 15000,
	// The calibration score is the typical maximum composite, not a hard cap;
	// scores beyond it simply pin the fee at the ceiling.

	// --- Collateral Health ---
	HealthyThresholdBps: 8000, // Below 0.8 collateral/debt the participant is AtRisk and withdrawals are gated.
	LiquidationStepBps:  2000, // Each soft-liquidation step retires 20% of outstanding debt, never more.

	// --- Pool Defaults ---
	DefaultRiskScore: 5000, // Medium-risk baseline for participants with no registered asset.
}
