/*

This file contains the types for risk scoring, and other configurable
parameters for the engine.

*/

package types

// RiskParameters holds all tunable multipliers, premiums, and thresholds used
// by the risk-scoring, dynamic-fee, and soft-liquidation logic. Different sets
// of these parameters can exist for different credit regimes.
type RiskParameters struct {
	// --- Credit Risk Components ---
	CreditScoreCeiling   int64 `json:"credit_score_ceiling"`   // Maximum admissible credit score (100). Scores above this are rejected at registration.
	CreditRiskMultiplier int64 `json:"credit_risk_multiplier"` // Multiplier applied to (ceiling - creditScore) to produce the credit risk component.

	// --- Maturity Risk Components ---
	MaturityWindowDays  int64 `json:"maturity_window_days"`  // Assets maturing within this many days (or already matured) carry the maturity premium.
	MaturityRiskPremium int64 `json:"maturity_risk_premium"` // Flat score premium for assets inside the maturity window.

	// --- Event Risk Components ---
	LatePaymentMultiplier     int64 `json:"late_payment_multiplier"`     // Severity multiplier for late-payment events.
	CreditDowngradeMultiplier int64 `json:"credit_downgrade_multiplier"` // Severity multiplier for credit-downgrade events. Both multipliers apply when both flags are set.
	SeverityCeiling           int64 `json:"severity_ceiling"`            // Maximum admissible event severity (100).
	EventWindowDays           int64 `json:"event_window_days"`           // Trailing window of event history considered by scoring.
	MaxScoredEvents           int64 `json:"max_scored_events"`           // At most this many of the most recently appended in-window events are scored.

	// --- Dynamic Fee Components ---
	MinFeeBps           int64 `json:"min_fee_bps"`           // Fee floor in basis points.
	MaxFeeBps           int64 `json:"max_fee_bps"`           // Fee ceiling in basis points; scores beyond calibration saturate here.
	FeeSlopeBps         int64 `json:"fee_slope_bps"`         // Fee range spanned between a zero score and the calibration score.
	FeeCalibrationScore int64 `json:"fee_calibration_score"` // Typical maximum risk score; not a hard ceiling on scores.

	// --- Collateral Health Components ---
	HealthyThresholdBps int64 `json:"healthy_threshold_bps"` // Health factor below which a participant is AtRisk and withdrawals are gated.
	LiquidationStepBps  int64 `json:"liquidation_step_bps"`  // Fraction of current debt (in bps) retired per soft-liquidation step.

	// --- Pool Defaults ---
	DefaultRiskScore int64 `json:"default_risk_score"` // Score assigned at pool activation for participants with no active asset.
}

// RiskScoreResult contains a computed risk score and its component breakdown.
type RiskScoreResult struct {
	Score      int64 `json:"score"`
	Components struct {
		CreditRisk   int64 `json:"credit_risk"`
		MaturityRisk int64 `json:"maturity_risk"`
		EventRisk    int64 `json:"event_risk"`
		ScoredEvents int   `json:"scored_events"`
		UsedDefault  bool  `json:"used_default"` // True when the pool's default score was used (no active asset)
	} `json:"components"`
}
