package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUpgradePatchDocument(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	doc := UpgradePatch(strPtr("cus_1"), nil, now).Document()

	assert.Equal(t, map[string]any{
		"isUpgraded":           true,
		"stripeCustomerId":     "cus_1",
		"stripeSubscriptionId": nil,
		"updatedAt":            now.UTC(),
	}, doc)
}

func TestDowngradePatchLeavesCustomerRef(t *testing.T) {
	now := time.Now()
	patch := DowngradePatch(now)

	_, hasCustomer := patch[FieldCustomerRef]
	assert.False(t, hasCustomer)

	doc := patch.Document()
	assert.Equal(t, false, doc["isUpgraded"])
	assert.Contains(t, doc, "stripeSubscriptionId")
	assert.Nil(t, doc["stripeSubscriptionId"])
}

func TestPatchApply(t *testing.T) {
	now := time.Now().UTC()
	acct := &Account{UID: "u1"}

	UpgradePatch(strPtr("cus_1"), strPtr("sub_1"), now).Apply(acct)
	assert.True(t, acct.Upgraded)
	require.NotNil(t, acct.CustomerRef)
	require.NotNil(t, acct.SubscriptionRef)
	assert.Equal(t, "cus_1", *acct.CustomerRef)
	assert.Equal(t, "sub_1", *acct.SubscriptionRef)

	later := now.Add(time.Hour)
	DowngradePatch(later).Apply(acct)
	assert.False(t, acct.Upgraded)
	assert.Nil(t, acct.SubscriptionRef)
	require.NotNil(t, acct.CustomerRef)
	assert.Equal(t, "cus_1", *acct.CustomerRef)
	assert.Equal(t, later, acct.UpdatedAt)
}

func TestChangeFor(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	up := ChangeFor("u1", UpgradePatch(strPtr("cus_1"), strPtr("sub_1"), now))
	assert.Equal(t, "u1", up.UID)
	assert.True(t, up.Upgraded)
	require.NotNil(t, up.SubscriptionRef)
	assert.Equal(t, "sub_1", *up.SubscriptionRef)
	assert.Equal(t, now, up.UpdatedAt)

	down := ChangeFor("u1", DowngradePatch(now))
	assert.False(t, down.Upgraded)
	assert.Nil(t, down.CustomerRef)
	assert.Nil(t, down.SubscriptionRef)
}
