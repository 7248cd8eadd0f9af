/*

This file contains the types for the append-only risk event history and the
notifications the engine emits on balance-changing lifecycle events.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// RiskEvent is a single adverse-event record. Events are append-only: they are
// never mutated or deleted, though only a trailing window of them is scored.
type RiskEvent struct {
	Timestamp         time.Time `json:"timestamp"`
	Severity          int       `json:"severity"` // 0-100 inclusive
	IsLatePayment     bool      `json:"is_late_payment"`
	IsCreditDowngrade bool      `json:"is_credit_downgrade"`
}

// NotificationType identifies the lifecycle event a notification reports.
type NotificationType string

const (
	NotificationAssetRegistered     NotificationType = "ASSET_REGISTERED"
	NotificationHealthUpdated       NotificationType = "HEALTH_UPDATED"
	NotificationLiquidationExecuted NotificationType = "LIQUIDATION_EXECUTED"
)

// Notification is an observability record emitted by the engine's components.
// Amount carries the registered face value or the liquidated debt amount
// depending on the notification type.
type Notification struct {
	Type            NotificationType `json:"type"`
	Pool            PoolID           `json:"pool_id"`
	Owner           string           `json:"owner"`
	Timestamp       time.Time        `json:"timestamp"`
	Amount          sdkmath.Int      `json:"amount,omitempty"`
	AssetType       AssetType        `json:"asset_type,omitempty"`
	HealthFactorBps int64            `json:"health_factor_bps,omitempty"`
}

// NotificationSink receives notifications as they are emitted. Implementations
// must not call back into the engine; sinks run inside lifecycle invocations.
type NotificationSink interface {
	Notify(n Notification)
}

// NotificationSinkFunc adapts a function to the NotificationSink interface.
type NotificationSinkFunc func(n Notification)

func (f NotificationSinkFunc) Notify(n Notification) { f(n) }
