// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tradefin-network/riskengine/internal/types"
)

// SaveRiskParameters saves a new version of risk parameters.
func SaveRiskParameters(params types.RiskParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE risk_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO risk_parameters (
            version, config_name, is_active, activated_at, created_at,
            credit_score_ceiling, credit_risk_multiplier,
            maturity_window_days, maturity_risk_premium,
            late_payment_multiplier, credit_downgrade_multiplier,
            severity_ceiling, event_window_days, max_scored_events,
            min_fee_bps, max_fee_bps, fee_slope_bps, fee_calibration_score,
            healthy_threshold_bps, liquidation_step_bps,
            default_risk_score
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7,
            $8, $9,
            $10, $11,
            $12, $13, $14,
            $15, $16, $17, $18,
            $19, $20,
            $21
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.CreditScoreCeiling, params.CreditRiskMultiplier,
		params.MaturityWindowDays, params.MaturityRiskPremium,
		params.LatePaymentMultiplier, params.CreditDowngradeMultiplier,
		params.SeverityCeiling, params.EventWindowDays, params.MaxScoredEvents,
		params.MinFeeBps, params.MaxFeeBps, params.FeeSlopeBps, params.FeeCalibrationScore,
		params.HealthyThresholdBps, params.LiquidationStepBps,
		params.DefaultRiskScore,
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert risk parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved risk parameters")
	return paramsID, nil
}

// LoadActiveRiskParameters loads the currently active risk parameters.
func LoadActiveRiskParameters(configName string) (*types.RiskParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT
            credit_score_ceiling, credit_risk_multiplier,
            maturity_window_days, maturity_risk_premium,
            late_payment_multiplier, credit_downgrade_multiplier,
            severity_ceiling, event_window_days, max_scored_events,
            min_fee_bps, max_fee_bps, fee_slope_bps, fee_calibration_score,
            healthy_threshold_bps, liquidation_step_bps,
            default_risk_score
        FROM risk_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	p := &types.RiskParameters{}
	row := DB.QueryRow(query, configName)
	err := row.Scan(
		&p.CreditScoreCeiling, &p.CreditRiskMultiplier,
		&p.MaturityWindowDays, &p.MaturityRiskPremium,
		&p.LatePaymentMultiplier, &p.CreditDowngradeMultiplier,
		&p.SeverityCeiling, &p.EventWindowDays, &p.MaxScoredEvents,
		&p.MinFeeBps, &p.MaxFeeBps, &p.FeeSlopeBps, &p.FeeCalibrationScore,
		&p.HealthyThresholdBps, &p.LiquidationStepBps,
		&p.DefaultRiskScore,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active risk parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active risk parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active risk parameters")
	return p, nil
}
