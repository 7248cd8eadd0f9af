/*

This file contains the main function for calculating the composite risk score
for a pool participant. The score is a pure function of the registered asset,
the recent event history, and the evaluation time; the engine owns no scoring
state.

*/

package analyzer

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/types"
	"github.com/tradefin-network/riskengine/internal/utils"
)

var ErrInvalidRiskParameters = errors.New("invalid risk parameters")
var ErrInvalidEventHistory = errors.New("invalid event history")
var scoreLogger = logger.GetForComponent("risk_scorer")

// CalculateRiskScore computes the composite risk score for one participant.
// Inputs:
//   - asset: the participant's registered asset, or nil if none is active.
//   - defaultScore: the pool's fallback score, used when asset is nil.
//   - events: the windowed event history, as returned by the event log.
//   - now: the evaluation time. Maturity risk is measured from here, so the
//     score rises automatically as maturity approaches even with no new events.
//   - params: the risk parameters defining multipliers and premiums.
//
// Output:
//   - A RiskScoreResult containing the score and component breakdown.
//   - An error if the parameters or event history fail validation.
//
// The score is unbounded above; the fee calculator's clamp absorbs large
// values. All additions saturate rather than overflow.
func CalculateRiskScore(asset *types.TradeAsset, defaultScore int64, events []types.RiskEvent, now time.Time, params types.RiskParameters) (types.RiskScoreResult, error) {
	if err := ValidateRiskParameters(params); err != nil {
		scoreLogger.Error().Err(err).Msg("Risk parameters validation failed")
		return types.RiskScoreResult{}, errors.Join(ErrInvalidRiskParameters, err)
	}

	var result types.RiskScoreResult

	// Participants with no active asset score flat at the pool default,
	// independent of event history.
	if asset == nil || !asset.IsActive {
		result.Score = defaultScore
		result.Components.UsedDefault = true
		scoreLogger.Debug().
			Int64("score", defaultScore).
			Msg("No active asset, using pool default risk score")
		return result, nil
	}

	creditRisk, err := CalculateCreditRisk(*asset, params)
	if err != nil {
		return types.RiskScoreResult{}, errors.Join(errors.New("credit risk calculation failed"), err)
	}
	result.Components.CreditRisk = creditRisk

	maturityRisk := CalculateMaturityRisk(*asset, now, params)
	result.Components.MaturityRisk = maturityRisk

	eventRisk, err := CalculateEventRisk(events, params)
	if err != nil {
		return types.RiskScoreResult{}, errors.Join(errors.New("event risk calculation failed"), err)
	}
	result.Components.EventRisk = eventRisk
	result.Components.ScoredEvents = len(events)

	result.Score = utils.SaturatingAdd(utils.SaturatingAdd(creditRisk, maturityRisk), eventRisk)

	scoreLogger.Debug().
		Int64("score", result.Score).
		Int64("creditRisk", creditRisk).
		Int64("maturityRisk", maturityRisk).
		Int64("eventRisk", eventRisk).
		Int("scoredEvents", len(events)).
		Msg("Risk score calculated")

	return result, nil
}

// CalculateCreditRisk derives the credit quality component:
// (ceiling - creditScore) x multiplier. A perfect credit score contributes
// zero.
func CalculateCreditRisk(asset types.TradeAsset, params types.RiskParameters) (int64, error) {
	score := int64(asset.CreditScore)
	if score < 0 || score > params.CreditScoreCeiling {
		return 0, fmt.Errorf("credit score %d outside [0, %d]", score, params.CreditScoreCeiling)
	}
	return utils.SaturatingMul(params.CreditScoreCeiling-score, params.CreditRiskMultiplier), nil
}

// CalculateMaturityRisk returns the flat maturity premium when the asset
// matures within the configured window of now, or has already matured. This is
// re-evaluated on every call, never cached from registration time.
func CalculateMaturityRisk(asset types.TradeAsset, now time.Time, params types.RiskParameters) int64 {
	windowEnd := now.Add(time.Duration(params.MaturityWindowDays) * 24 * time.Hour)
	if !asset.Maturity.After(windowEnd) {
		return params.MaturityRiskPremium
	}
	return 0
}

// CalculateEventRisk sums the contributions of the considered events:
// severity x late-payment multiplier plus severity x downgrade multiplier.
// Both flags on one event both apply; the contributions are independent and
// additive.
func CalculateEventRisk(events []types.RiskEvent, params types.RiskParameters) (int64, error) {
	var total int64
	for i, ev := range events {
		severity := int64(ev.Severity)
		if severity < 0 || severity > params.SeverityCeiling {
			return 0, fmt.Errorf("%w: event %d has severity %d outside [0, %d]",
				ErrInvalidEventHistory, i, severity, params.SeverityCeiling)
		}
		if ev.IsLatePayment {
			total = utils.SaturatingAdd(total, utils.SaturatingMul(severity, params.LatePaymentMultiplier))
		}
		if ev.IsCreditDowngrade {
			total = utils.SaturatingAdd(total, utils.SaturatingMul(severity, params.CreditDowngradeMultiplier))
		}
	}
	return total, nil
}

// ValidateRiskParameters rejects parameter sets that would make the scoring or
// fee math degenerate. Strict validation, no silent fixups.
func ValidateRiskParameters(params types.RiskParameters) error {
	if params.CreditScoreCeiling <= 0 {
		return errors.New("CreditScoreCeiling must be positive")
	}
	if params.CreditRiskMultiplier < 0 {
		return errors.New("CreditRiskMultiplier cannot be negative")
	}
	if params.MaturityWindowDays < 0 {
		return errors.New("MaturityWindowDays cannot be negative")
	}
	if params.MaturityRiskPremium < 0 {
		return errors.New("MaturityRiskPremium cannot be negative")
	}
	if params.LatePaymentMultiplier < 0 || params.CreditDowngradeMultiplier < 0 {
		return errors.New("event multipliers cannot be negative")
	}
	if params.SeverityCeiling <= 0 {
		return errors.New("SeverityCeiling must be positive")
	}
	if params.EventWindowDays <= 0 {
		return errors.New("EventWindowDays must be positive")
	}
	if params.MaxScoredEvents <= 0 {
		return errors.New("MaxScoredEvents must be positive")
	}
	if params.MinFeeBps < 0 || params.MaxFeeBps < params.MinFeeBps {
		return errors.New("fee bounds must satisfy 0 <= MinFeeBps <= MaxFeeBps")
	}
	if params.FeeSlopeBps < 0 {
		return errors.New("FeeSlopeBps cannot be negative")
	}
	if params.FeeCalibrationScore <= 0 {
		return errors.New("FeeCalibrationScore must be positive")
	}
	if params.HealthyThresholdBps <= 0 {
		return errors.New("HealthyThresholdBps must be positive")
	}
	if params.LiquidationStepBps <= 0 || params.LiquidationStepBps > utils.BasisPointsDenom {
		return errors.New("LiquidationStepBps must be in (0, 10000]")
	}
	if params.DefaultRiskScore < 0 {
		return errors.New("DefaultRiskScore cannot be negative")
	}
	return nil
}
