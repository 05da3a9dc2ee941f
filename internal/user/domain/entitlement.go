package domain

import "time"

// IsPro reports whether the user is entitled to Pro features at the
// given instant. A cancelled subscription keeps its access until the
// paid period elapses, so a future CurrentPeriodEnd grants access even
// when the stored tier has already been downgraded by a stray event.
func (u *User) IsPro(now time.Time) bool {
	if u == nil {
		return false
	}
	if u.Tier == TierPro {
		return true
	}
	if u.CurrentPeriodEnd != nil && u.CurrentPeriodEnd.After(now) {
		return true
	}
	return false
}
