package kraken

import (
	"context"

	"github.com/kilianp07/smartcharge/core/gateway"
	"github.com/kilianp07/smartcharge/core/model"
)

var _ gateway.Gateway = (*Client)(nil)

// Accounts lists the account numbers visible to the API key.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var out struct {
		Viewer struct {
			Accounts []struct {
				Number string `json:"number"`
			} `json:"accounts"`
		} `json:"viewer"`
	}
	if err := c.execute(ctx, opAccounts, queryAccounts, nil, &out); err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(out.Viewer.Accounts))
	for _, a := range out.Viewer.Accounts {
		numbers = append(numbers, a.Number)
	}
	return numbers, nil
}

// FetchCombinedState fetches preferences, device and dispatches in one query.
func (c *Client) FetchCombinedState(ctx context.Context, accountID string) (model.CombinedState, error) {
	var out combinedDTO
	if err := c.execute(ctx, opCombined, queryCombined, accountVars(accountID), &out); err != nil {
		return model.CombinedState{}, err
	}
	return out.toModel(c.log), nil
}

// SetChargePreferences applies the same targets to weekdays and weekends.
func (c *Client) SetChargePreferences(ctx context.Context, accountID string, readyByHours float64, targetSoC int) error {
	prefs, err := gateway.NormalizePreferences(readyByHours, targetSoC)
	if err != nil {
		return err
	}
	vars := accountVars(accountID)
	vars["targetTime"] = prefs.TargetTime
	vars["targetSocPercent"] = prefs.TargetSoC
	c.log.Debugw("setting charge preferences", map[string]any{
		"account": accountID, "target_time": prefs.TargetTime, "target_soc": prefs.TargetSoC,
	})
	return c.execute(ctx, opPreferences, mutationPreferences, vars, nil)
}

func (c *Client) TriggerBoostCharge(ctx context.Context, accountID string) error {
	return c.execute(ctx, opTriggerBoost, mutationTriggerBoost, accountVars(accountID), nil)
}

func (c *Client) CancelBoostCharge(ctx context.Context, accountID string) error {
	return c.execute(ctx, opDeleteBoost, mutationDeleteBoost, accountVars(accountID), nil)
}

func (c *Client) SuspendSmartCharging(ctx context.Context, accountID string) error {
	return c.execute(ctx, opSuspend, mutationSuspend, accountVars(accountID), nil)
}

func (c *Client) ResumeSmartCharging(ctx context.Context, accountID string) error {
	return c.execute(ctx, opResume, mutationResume, accountVars(accountID), nil)
}

func accountVars(accountID string) map[string]any {
	return map[string]any{"accountNumber": accountID}
}
