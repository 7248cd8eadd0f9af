/*

This file contains the types for registered trade-finance assets and the
participant key addressing all per-pool, per-owner engine state.

*/

package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// ParticipantKey addresses all per-participant state. Every record the engine
// owns (asset, collateral health, risk events) lives under exactly one key;
// nothing is shared across participants.
type ParticipantKey struct {
	Pool  PoolID `json:"pool_id"`
	Owner string `json:"owner"`
}

func (k ParticipantKey) String() string {
	return fmt.Sprintf("%d/%s", k.Pool, k.Owner)
}

// AssetType classifies the tokenized trade-finance instrument backing a
// position.
type AssetType string

const (
	AssetTypeInvoice        AssetType = "INVOICE"
	AssetTypeBillOfLading   AssetType = "BILL_OF_LADING"
	AssetTypeLetterOfCredit AssetType = "LETTER_OF_CREDIT"
	AssetTypeReceivable     AssetType = "RECEIVABLE"
)

// Valid reports whether the asset type is one of the recognized instruments.
func (t AssetType) Valid() bool {
	switch t {
	case AssetTypeInvoice, AssetTypeBillOfLading, AssetTypeLetterOfCredit, AssetTypeReceivable:
		return true
	}
	return false
}

// TradeAsset is the registered asset record for one participant. Re-registering
// overwrites the slot in place; no history of prior asset state is kept.
type TradeAsset struct {
	FaceValue        sdkmath.Int `json:"face_value"`        // Face value in asset denomination units, must be > 0
	Maturity         time.Time   `json:"maturity"`          // Must be strictly in the future at registration time
	CreditScore      int         `json:"credit_score"`      // 0-100 inclusive, higher is better credit quality
	Type             AssetType   `json:"asset_type"`        // Instrument class
	JurisdictionHash string      `json:"jurisdiction_hash"` // Opaque compliance tag, compared only for equality
	IsActive         bool        `json:"is_active"`         // Set by the registry on successful registration
}

// PoolComplianceState is the per-pool admissibility record. The compliance
// flag is set once at pool creation and is not revocable through the engine.
type PoolComplianceState struct {
	IsCompliant      bool  `json:"is_compliant"`
	DefaultRiskScore int64 `json:"default_risk_score"` // Fallback score for participants with no active asset, set at activation
	Activated        bool  `json:"activated"`
}
