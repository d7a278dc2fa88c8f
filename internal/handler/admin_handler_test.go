package handler

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutes_RequireSuperAdmin(t *testing.T) {
	a := newTestApp(t)
	a.clinic(t)
	session := a.login(t, "admin@clinic.com")

	for _, path := range []string{"/api/admin/tenants", "/api/admin/plans", "/api/admin/stats", "/api/admin/audit-logs"} {
		resp := a.do(t, http.MethodGet, path, nil, session)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
}

func TestAdminRoutes_PathCaseDoesNotBypass(t *testing.T) {
	a := newTestApp(t)
	a.clinic(t)
	session := a.login(t, "admin@clinic.com")

	for _, path := range []string{"/api/ADMIN/tenants", "/API/admin/plans", "/Api/Admin/stats"} {
		resp := a.do(t, http.MethodGet, path, nil, session)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
}

func TestAdminRoutes_TenantLifecycle(t *testing.T) {
	a := newTestApp(t)
	cl := a.clinic(t)
	root := a.login(t, a.superAdmin(t).Email)

	resp := a.do(t, http.MethodPost, "/api/admin/tenants", fiber.Map{
		"name":   "Clinica Sul",
		"planId": cl.plan.ID.String(),
		"admin":  fiber.Map{"name": "Sul Admin", "email": "sul@clinic.com", "password": testPassword},
	}, root)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode(t, resp)
	tenant := created["tenant"].(map[string]interface{})
	assert.Equal(t, "clinica-sul", tenant["slug"])
	assert.EqualValues(t, 2, created["sync"].(map[string]interface{})["activated"])
	id := tenant["id"].(string)

	resp = a.do(t, http.MethodPost, "/api/admin/tenants", fiber.Map{
		"name":   "Clinica Sul",
		"planId": cl.plan.ID.String(),
	}, root)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/admin/tenants?search=sul", nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pagination := decode(t, resp)["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total"])

	resp = a.do(t, http.MethodGet, "/api/admin/tenants/"+id+"/products", nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp)["total"])

	resp = a.do(t, http.MethodPut, "/api/admin/tenants/"+id+"/products/"+cl.educational.ID.String(),
		fiber.Map{"isActive": false}, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/api/admin/tenants/"+id+"/products/sync", nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["activated"])

	resp = a.do(t, http.MethodDelete, "/api/admin/tenants/"+id, nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/admin/tenants/"+id, nil, root)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutes_PlanDeleteRefusedWhileUsed(t *testing.T) {
	a := newTestApp(t)
	cl := a.clinic(t)
	root := a.login(t, a.superAdmin(t).Email)

	resp := a.do(t, http.MethodDelete, "/api/admin/plans/"+cl.plan.ID.String(), nil, root)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["count"])

	resp = a.do(t, http.MethodPost, "/api/admin/plans", fiber.Map{
		"name": "Basico", "slug": "basico", "maxUsers": 3, "price": "49.90",
	}, root)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode(t, resp)["id"].(string)

	resp = a.do(t, http.MethodPut, "/api/admin/plans/"+id+"/products/"+cl.educational.ID.String(),
		fiber.Map{"isActive": true, "config": fiber.Map{"maxCourses": 3}}, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/admin/plans/"+id, nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, resp)["products"], 1)

	resp = a.do(t, http.MethodDelete, "/api/admin/plans/"+id, nil, root)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminRoutes_ProductsAndStats(t *testing.T) {
	a := newTestApp(t)
	a.clinic(t)
	root := a.login(t, a.superAdmin(t).Email)

	resp := a.do(t, http.MethodPost, "/api/admin/products", fiber.Map{
		"name": "Agenda", "slug": "agenda", "baseUrl": "https://agenda.example.com",
	}, root)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode(t, resp)["id"].(string)

	resp = a.do(t, http.MethodPost, "/api/admin/products", fiber.Map{"name": "Bad", "slug": "Not A Slug"}, root)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["fields"], "slug")

	resp = a.do(t, http.MethodDelete, "/api/admin/products/"+id, nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/api/admin/products?active=true", nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp)["total"])

	resp = a.do(t, http.MethodGet, "/api/admin/stats", nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode(t, resp)
	assert.EqualValues(t, 1, stats["totalTenants"])
	assert.EqualValues(t, 2, stats["activeProducts"])

	resp = a.do(t, http.MethodGet, "/api/admin/audit-logs?action=PRODUCT_DEACTIVATED", nil, root)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, resp)["logs"], 1)

	resp = a.do(t, http.MethodGet, "/api/admin/audit-logs?userId=nope", nil, root)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
