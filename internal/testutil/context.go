package testutil

import (
	"context"

	"github.com/vendra/vendra/internal/types"
)

func SetupContext() context.Context {
	return SetupContextWithRoles(types.RoleOwner)
}

func SetupContextWithRoles(roles ...types.Role) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxTenantID, types.DefaultTenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	ctx = types.SetRoles(ctx, roles)
	return ctx
}
