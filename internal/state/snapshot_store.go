/*

This file persists the engine's keyed state (pool compliance, trade assets,
collateral health, risk events) so a restarted engine can warm-start from the
last observed state. Amounts are stored as NUMERIC and round-tripped through
their string form to keep sdkmath.Int exact.

*/

package state

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
	"github.com/tradefin-network/riskengine/internal/types"
)

// UpsertPool persists a pool's compliance state.
func UpsertPool(pool types.PoolID, st types.PoolComplianceState) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO pool_compliance (pool_id, is_compliant, default_risk_score, activated, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (pool_id) DO UPDATE SET
			is_compliant = EXCLUDED.is_compliant,
			default_risk_score = EXCLUDED.default_risk_score,
			activated = EXCLUDED.activated,
			updated_at = CURRENT_TIMESTAMP;`

	_, err := DB.Exec(stmt, int64(pool), st.IsCompliant, st.DefaultRiskScore, st.Activated)
	if err != nil {
		return fmt.Errorf("failed to upsert pool %d: %w", pool, err)
	}
	return nil
}

// UpsertAsset persists a participant's registered asset.
func UpsertAsset(key types.ParticipantKey, asset types.TradeAsset) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO trade_assets (pool_id, owner, face_value, maturity, credit_score, asset_type, jurisdiction_hash, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CURRENT_TIMESTAMP)
		ON CONFLICT (pool_id, owner) DO UPDATE SET
			face_value = EXCLUDED.face_value,
			maturity = EXCLUDED.maturity,
			credit_score = EXCLUDED.credit_score,
			asset_type = EXCLUDED.asset_type,
			jurisdiction_hash = EXCLUDED.jurisdiction_hash,
			is_active = EXCLUDED.is_active,
			updated_at = CURRENT_TIMESTAMP;`

	_, err := DB.Exec(stmt,
		int64(key.Pool), key.Owner,
		asset.FaceValue.String(), asset.Maturity, asset.CreditScore,
		string(asset.Type), asset.JurisdictionHash, asset.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert asset for %s: %w", key, err)
	}
	return nil
}

// UpsertHealth persists a participant's collateral health record.
func UpsertHealth(key types.ParticipantKey, health types.CollateralHealth) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO collateral_health (pool_id, owner, total_collateral, total_debt, health_factor_bps, last_update)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pool_id, owner) DO UPDATE SET
			total_collateral = EXCLUDED.total_collateral,
			total_debt = EXCLUDED.total_debt,
			health_factor_bps = EXCLUDED.health_factor_bps,
			last_update = EXCLUDED.last_update;`

	_, err := DB.Exec(stmt,
		int64(key.Pool), key.Owner,
		health.TotalCollateral.String(), health.TotalDebt.String(),
		health.HealthFactorBps, health.LastUpdate)
	if err != nil {
		return fmt.Errorf("failed to upsert collateral health for %s: %w", key, err)
	}
	return nil
}

// InsertRiskEvent appends a risk event row. Events are append-only; there is
// no update path.
func InsertRiskEvent(key types.ParticipantKey, event types.RiskEvent) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO risk_events (pool_id, owner, event_timestamp, severity, is_late_payment, is_credit_downgrade)
		VALUES ($1, $2, $3, $4, $5, $6);`

	_, err := DB.Exec(stmt,
		int64(key.Pool), key.Owner,
		event.Timestamp, event.Severity, event.IsLatePayment, event.IsCreditDowngrade)
	if err != nil {
		return fmt.Errorf("failed to insert risk event for %s: %w", key, err)
	}
	return nil
}

// LoadPools loads all persisted pool compliance states.
func LoadPools() (map[types.PoolID]types.PoolComplianceState, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`SELECT pool_id, is_compliant, default_risk_score, activated FROM pool_compliance;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool compliance: %w", err)
	}
	defer rows.Close()

	pools := make(map[types.PoolID]types.PoolComplianceState)
	for rows.Next() {
		var poolID int64
		var st types.PoolComplianceState
		if err := rows.Scan(&poolID, &st.IsCompliant, &st.DefaultRiskScore, &st.Activated); err != nil {
			return nil, fmt.Errorf("failed to scan pool compliance row: %w", err)
		}
		pools[types.PoolID(poolID)] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating pool compliance rows: %w", err)
	}

	log.Info().Int("pools", len(pools)).Msg("Loaded pool compliance state")
	return pools, nil
}

// LoadAssets loads all persisted trade assets.
func LoadAssets() (map[types.ParticipantKey]types.TradeAsset, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT pool_id, owner, face_value, maturity, credit_score, asset_type, jurisdiction_hash, is_active
		FROM trade_assets;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade assets: %w", err)
	}
	defer rows.Close()

	assets := make(map[types.ParticipantKey]types.TradeAsset)
	for rows.Next() {
		var poolID int64
		var owner, faceValue, assetType string
		var asset types.TradeAsset
		if err := rows.Scan(&poolID, &owner, &faceValue, &asset.Maturity, &asset.CreditScore,
			&assetType, &asset.JurisdictionHash, &asset.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan trade asset row: %w", err)
		}
		fv, ok := sdkmath.NewIntFromString(faceValue)
		if !ok {
			return nil, fmt.Errorf("invalid face value %q for pool %d owner %s", faceValue, poolID, owner)
		}
		asset.FaceValue = fv
		asset.Type = types.AssetType(assetType)
		assets[types.ParticipantKey{Pool: types.PoolID(poolID), Owner: owner}] = asset
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating trade asset rows: %w", err)
	}

	log.Info().Int("assets", len(assets)).Msg("Loaded trade assets")
	return assets, nil
}

// LoadHealth loads all persisted collateral health records.
func LoadHealth() (map[types.ParticipantKey]types.CollateralHealth, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT pool_id, owner, total_collateral, total_debt, health_factor_bps, last_update
		FROM collateral_health;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query collateral health: %w", err)
	}
	defer rows.Close()

	healths := make(map[types.ParticipantKey]types.CollateralHealth)
	for rows.Next() {
		var poolID int64
		var owner, collateral, debt string
		var health types.CollateralHealth
		if err := rows.Scan(&poolID, &owner, &collateral, &debt,
			&health.HealthFactorBps, &health.LastUpdate); err != nil {
			return nil, fmt.Errorf("failed to scan collateral health row: %w", err)
		}
		tc, ok := sdkmath.NewIntFromString(collateral)
		if !ok {
			return nil, fmt.Errorf("invalid total collateral %q for pool %d owner %s", collateral, poolID, owner)
		}
		td, ok := sdkmath.NewIntFromString(debt)
		if !ok {
			return nil, fmt.Errorf("invalid total debt %q for pool %d owner %s", debt, poolID, owner)
		}
		health.TotalCollateral = tc
		health.TotalDebt = td
		healths[types.ParticipantKey{Pool: types.PoolID(poolID), Owner: owner}] = health
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating collateral health rows: %w", err)
	}

	log.Info().Int("healthRecords", len(healths)).Msg("Loaded collateral health")
	return healths, nil
}

// LoadRiskEvents loads all persisted risk events in append order (event_id).
func LoadRiskEvents() (map[types.ParticipantKey][]types.RiskEvent, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT pool_id, owner, event_timestamp, severity, is_late_payment, is_credit_downgrade
		FROM risk_events
		ORDER BY event_id ASC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk events: %w", err)
	}
	defer rows.Close()

	events := make(map[types.ParticipantKey][]types.RiskEvent)
	total := 0
	for rows.Next() {
		var poolID int64
		var owner string
		var ts time.Time
		var event types.RiskEvent
		if err := rows.Scan(&poolID, &owner, &ts, &event.Severity,
			&event.IsLatePayment, &event.IsCreditDowngrade); err != nil {
			return nil, fmt.Errorf("failed to scan risk event row: %w", err)
		}
		event.Timestamp = ts
		key := types.ParticipantKey{Pool: types.PoolID(poolID), Owner: owner}
		events[key] = append(events[key], event)
		total++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating risk event rows: %w", err)
	}

	log.Info().Int("events", total).Msg("Loaded risk events")
	return events, nil
}
