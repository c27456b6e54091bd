package dispatch

import (
	"time"

	"github.com/kilianp07/smartcharge/core/model"
)

// AnySource matches dispatches regardless of their source. The empty
// string is a real source value: it selects dispatches the API left
// unclassified.
const AnySource = "*"

// IsChargingNow reports whether a dispatch of the given source covers
// now+offsetMinutes. AnySource matches every dispatch.
func IsChargingNow(records []model.DispatchRecord, source string, now time.Time, offsetMinutes int) bool {
	at := now.Add(time.Duration(offsetMinutes) * time.Minute)
	for _, r := range records {
		if source != AnySource && r.Source != source {
			continue
		}
		if r.Active(at) {
			return true
		}
	}
	return false
}

// IsBoostChargingNow reports whether a bump charge is running at now.
func IsBoostChargingNow(records []model.DispatchRecord, now time.Time) bool {
	return IsChargingNow(records, model.SourceBumpCharge, now, 0)
}

// IsSmartChargeActiveNow reports whether a smart-charge dispatch covers
// now+offsetMinutes.
func IsSmartChargeActiveNow(records []model.DispatchRecord, now time.Time, offsetMinutes int) bool {
	return IsChargingNow(records, model.SourceSmartCharge, now, offsetMinutes)
}
