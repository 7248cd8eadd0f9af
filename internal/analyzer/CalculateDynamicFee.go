/*

This file contains the dynamic fee calculation. The fee is a bounded linear
function of the risk score, expressed in basis points.

*/

package analyzer

import (
	"errors"
	"fmt"

	"github.com/tradefin-network/riskengine/internal/types"
	"github.com/tradefin-network/riskengine/internal/utils"
)

var ErrInvalidRiskScore = errors.New("invalid risk score")

// CalculateDynamicFee maps a risk score to a swap fee in basis points:
//
//	fee = MinFeeBps + floor(score x FeeSlopeBps / FeeCalibrationScore)
//
// clamped to [MinFeeBps, MaxFeeBps]. The calibration score is the typical
// maximum, not a hard ceiling; scores beyond it simply saturate the fee at
// MaxFeeBps.
func CalculateDynamicFee(riskScore int64, params types.RiskParameters) (int64, error) {
	if err := ValidateRiskParameters(params); err != nil {
		return 0, errors.Join(ErrInvalidRiskParameters, err)
	}
	if riskScore < 0 {
		return 0, fmt.Errorf("%w: score %d is negative", ErrInvalidRiskScore, riskScore)
	}

	slope := utils.SaturatingMul(riskScore, params.FeeSlopeBps) / params.FeeCalibrationScore
	fee := utils.SaturatingAdd(params.MinFeeBps, slope)
	return utils.ClampInt64(fee, params.MinFeeBps, params.MaxFeeBps), nil
}
