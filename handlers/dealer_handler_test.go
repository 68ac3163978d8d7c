package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer_hub/models"
)

func TestRegisterDealer(t *testing.T) {
	app, db := newTestApp(t)

	root := registerAndLogin(t, app)

	var dealer models.Dealer
	require.NoError(t, db.First(&dealer, root.ID).Error)
	assert.Equal(t, 0, dealer.HierarchyLevel)
	assert.Nil(t, dealer.ParentDealerID)
	assert.NotEqual(t, root.Password, dealer.Password)

	status, body := doJSON(t, app, http.MethodPost, "/api/dealers/register", "", fiber.Map{
		"name":     "Copy",
		"slug":     dealer.Slug,
		"username": uniqueName("copy"),
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "slug_taken", body["message_kind"])

	status, body = doJSON(t, app, http.MethodPost, "/api/dealers/register", "", fiber.Map{
		"name":     "Bad",
		"slug":     "Not A Slug!",
		"username": "ab",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", body["message_kind"])
	assert.Subset(t, body["fields"], []interface{}{"username", "password"})
}

func TestSubDealerEndpoints(t *testing.T) {
	app, db := newTestApp(t)

	parent := registerAndLogin(t, app)
	child := createChild(t, app, parent, nil)

	var stored models.Dealer
	require.NoError(t, db.First(&stored, child.ID).Error)
	assert.Equal(t, 1, stored.HierarchyLevel)
	assert.True(t, stored.IsChildOf(parent.ID))
	assert.True(t, stored.InheritProducts)
	assert.False(t, stored.AllowCustomProducts)

	status, body := doJSON(t, app, http.MethodGet, "/api/dealer/sub-dealers", parent.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", child.Token, nil)
	require.Equal(t, http.StatusOK, status)
	hierarchy := body["data"].(map[string]interface{})
	assert.EqualValues(t, parent.ID, hierarchy["parent"].(map[string]interface{})["id"])
	assert.Empty(t, hierarchy["children"])

	status, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/dealer/sub-dealers/%d", child.ID), parent.Token, fiber.Map{
		"name":                  "Renamed",
		"allow_custom_products": true,
	})
	require.Equal(t, http.StatusOK, status, body)
	require.NoError(t, db.First(&stored, child.ID).Error)
	assert.Equal(t, "Renamed", stored.Name)
	assert.True(t, stored.AllowCustomProducts)

	// 只能管理直属下级
	status, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/dealer/sub-dealers/%d", parent.ID), child.Token, fiber.Map{"name": "x"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_sub_dealer", body["message_kind"])

	// 有订单的下级不能删除
	completedOrder(t, app, child, 50)
	status, body = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/dealer/sub-dealers/%d", child.ID), parent.Token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "has_orders", body["message_kind"])

	empty := createChild(t, app, parent, nil)
	status, body = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/dealer/sub-dealers/%d", empty.ID), parent.Token, nil)
	require.Equal(t, http.StatusOK, status, body)

	// 删除后其令牌失效
	status, _ = doJSON(t, app, http.MethodGet, "/api/dealer/hierarchy", empty.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodDelete, "/api/dealer/sub-dealers/0", parent.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSubDealerMaxLevel(t *testing.T) {
	app, _ := newTestApp(t)

	current := registerAndLogin(t, app)
	for level := 1; level <= models.MaxHierarchyLevel; level++ {
		current = createChild(t, app, current, nil)
	}

	status, body := doJSON(t, app, http.MethodPost, "/api/dealer/sub-dealers", current.Token, fiber.Map{
		"name":     "Too Deep",
		"slug":     uniqueName("deep"),
		"username": uniqueName("deep"),
		"password": "secret123",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "max_level_reached", body["message_kind"])
}
