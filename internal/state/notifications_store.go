/*

This file persists the notifications the engine emits (registrations, health
updates, liquidation executions) as an append-only journal with a database
assigned sequence, for audit and for the operational API.

*/

package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/tradefin-network/riskengine/internal/types"
)

// PersistedNotification is a journal row with its assigned sequence.
type PersistedNotification struct {
	Sequence        int64                  `json:"sequence"`
	Type            types.NotificationType `json:"type"`
	Pool            types.PoolID           `json:"pool_id"`
	Owner           string                 `json:"owner"`
	Amount          sdkmath.Int            `json:"amount"`
	AssetType       types.AssetType        `json:"asset_type,omitempty"`
	HealthFactorBps int64                  `json:"health_factor_bps,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// SaveNotification appends one notification to the journal and returns its
// sequence.
func SaveNotification(n types.Notification) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	amount := sql.NullString{}
	if !n.Amount.IsNil() {
		amount = sql.NullString{String: n.Amount.String(), Valid: true}
	}

	stmt := `
		INSERT INTO engine_notifications (notification_type, pool_id, owner, amount, asset_type, health_factor_bps, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING sequence;`

	var sequence int64
	err := DB.QueryRow(stmt,
		string(n.Type), int64(n.Pool), n.Owner,
		amount, string(n.AssetType), n.HealthFactorBps, n.Timestamp).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}
	return sequence, nil
}

// GetRecentNotifications returns the most recent journal rows, newest first.
func GetRecentNotifications(limit int) ([]PersistedNotification, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := DB.Query(`
		SELECT sequence, notification_type, pool_id, owner, amount, asset_type, health_factor_bps, created_at
		FROM engine_notifications
		ORDER BY sequence DESC
		LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []PersistedNotification
	for rows.Next() {
		var n PersistedNotification
		var poolID int64
		var notificationType, assetType string
		var amount sql.NullString
		if err := rows.Scan(&n.Sequence, &notificationType, &poolID, &n.Owner,
			&amount, &assetType, &n.HealthFactorBps, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		n.Type = types.NotificationType(notificationType)
		n.Pool = types.PoolID(poolID)
		n.AssetType = types.AssetType(assetType)
		n.Amount = sdkmath.ZeroInt()
		if amount.Valid {
			if parsed, ok := sdkmath.NewIntFromString(amount.String); ok {
				n.Amount = parsed
			}
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating notification rows: %w", err)
	}
	return notifications, nil
}
