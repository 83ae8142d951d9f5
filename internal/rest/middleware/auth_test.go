package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendra/vendra/internal/types"
)

// Guest auth backs local mode, where no identity service runs; the guest
// must be able to reach every operation, including owner-gated deletes.
func TestGuestAuthGrantsFullAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var ctxRoles []types.Role
	var tenantID, userID string

	r := gin.New()
	r.Use(GuestAuthenticateMiddleware)
	r.GET("/whoami", func(c *gin.Context) {
		ctx := c.Request.Context()
		ctxRoles = types.GetRoles(ctx)
		tenantID = types.GetTenantID(ctx)
		userID = types.GetUserID(ctx)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, types.DefaultTenantID, tenantID)
	assert.Equal(t, types.DefaultUserID, userID)

	role := types.HighestRole(ctxRoles)
	for _, et := range types.SoftDeletableTypes() {
		assert.True(t, types.CanDelete(role, et), "guest cannot delete %s", et)
		assert.True(t, types.CanPermanentlyDelete(role, et), "guest cannot permanently delete %s", et)
	}
}
