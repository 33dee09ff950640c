package accounts

import "time"

// StatusChange is the message published after a billing status write.
type StatusChange struct {
	UID             string    `json:"uid"`
	Upgraded        bool      `json:"isUpgraded"`
	CustomerRef     *string   `json:"stripeCustomerId,omitempty"`
	SubscriptionRef *string   `json:"stripeSubscriptionId"`
	UpdatedAt       time.Time `json:"updatedAt"`
	EventID         string    `json:"eventId"`
	EventType       string    `json:"eventType"`
}

// ChangeFor describes patch as applied to uid.
func ChangeFor(uid string, patch Patch) StatusChange {
	acct := Account{UID: uid}
	patch.Apply(&acct)
	return StatusChange{
		UID:             uid,
		Upgraded:        acct.Upgraded,
		CustomerRef:     acct.CustomerRef,
		SubscriptionRef: acct.SubscriptionRef,
		UpdatedAt:       acct.UpdatedAt,
	}
}
