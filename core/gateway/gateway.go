// Package gateway defines the contract of the remote tariff provider and the
// validation applied before any mutation reaches it.
package gateway

import (
	"context"

	"github.com/kilianp07/smartcharge/core/model"
)

// Gateway is the sole data source of the system. Implementations map provider
// responses into model types at the boundary.
type Gateway interface {
	// Accounts lists the account numbers reachable with the configured key.
	Accounts(ctx context.Context) ([]string, error)
	// FetchCombinedState returns preferences, device and dispatches at once.
	FetchCombinedState(ctx context.Context, accountID string) (model.CombinedState, error)
	// SetChargePreferences normalises the values with NormalizePreferences
	// and fails with model.ErrInvalidArgument before any network call when
	// they are out of range.
	SetChargePreferences(ctx context.Context, accountID string, readyByHours float64, targetSoC int) error
	TriggerBoostCharge(ctx context.Context, accountID string) error
	CancelBoostCharge(ctx context.Context, accountID string) error
	SuspendSmartCharging(ctx context.Context, accountID string) error
	ResumeSmartCharging(ctx context.Context, accountID string) error
}
