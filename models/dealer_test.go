package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealerPassword(t *testing.T) {
	var d Dealer
	require.NoError(t, d.SetPassword("secret123"))
	assert.NotEqual(t, "secret123", d.Password)
	assert.True(t, d.CheckPassword("secret123"))
	assert.False(t, d.CheckPassword("secret124"))
}

func TestDealerTreeHelpers(t *testing.T) {
	parentID := uint(3)
	child := Dealer{ParentDealerID: &parentID}
	root := Dealer{}

	assert.True(t, child.IsChildOf(3))
	assert.False(t, child.IsChildOf(4))
	assert.False(t, root.IsChildOf(3))

	assert.False(t, child.IsDeleted())
	now := time.Now()
	child.DeletedAt = &now
	assert.True(t, child.IsDeleted())
}

func TestShopOrderIsCompleted(t *testing.T) {
	assert.True(t, (&ShopOrder{Status: OrderStatusCompleted}).IsCompleted())
	assert.False(t, (&ShopOrder{Status: OrderStatusPending}).IsCompleted())
}
