/*

This file adapts the state stores to the engine's Journal interface so the
engine core stays free of database imports.

*/

package state

import (
	"github.com/tradefin-network/riskengine/internal/types"
)

// Journal implements the engine's persistence interface on the global DB.
type Journal struct{}

// NewJournal returns a Journal backed by the initialized database connection.
func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) SavePool(pool types.PoolID, st types.PoolComplianceState) error {
	return UpsertPool(pool, st)
}

func (j *Journal) SaveAsset(key types.ParticipantKey, asset types.TradeAsset) error {
	return UpsertAsset(key, asset)
}

func (j *Journal) SaveHealth(key types.ParticipantKey, health types.CollateralHealth) error {
	return UpsertHealth(key, health)
}

func (j *Journal) SaveRiskEvent(key types.ParticipantKey, event types.RiskEvent) error {
	return InsertRiskEvent(key, event)
}

func (j *Journal) SaveNotification(n types.Notification) error {
	_, err := SaveNotification(n)
	return err
}
