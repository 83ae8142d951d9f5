package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/vendra/vendra/internal/config"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/types"
)

// Claims is the identity the admin gateway asserts on every request
type Claims struct {
	UserID   string
	TenantID string
	Roles    []types.Role
}

// Validator verifies the HS256 JWTs minted by the identity service
type Validator struct {
	cfg config.AuthConfig
}

func NewValidator(cfg *config.Configuration) *Validator {
	return &Validator{cfg: cfg.Auth}
}

func (v *Validator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrPermissionDenied)
		}
		return []byte(v.cfg.Secret), nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Token parse error").
			Mark(ierr.ErrPermissionDenied)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	userID, userOk := claims["user_id"].(string)
	if !userOk {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrPermissionDenied)
	}

	tenantID, tenantOk := claims["tenant_id"].(string)
	if !tenantOk {
		tenantID = types.DefaultTenantID
	}

	return &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Roles:    parseRoles(claims["roles"]),
	}, nil
}

// GenerateToken mints a token the validator accepts, used by local tooling
// and tests
func (v *Validator) GenerateToken(userID, tenantID string, roles []types.Role) (string, error) {
	now := time.Now()
	roleStrings := make([]string, len(roles))
	for i, r := range roles {
		roleStrings[i] = string(r)
	}

	claims := jwt.MapClaims{
		"user_id":   userID,
		"tenant_id": tenantID,
		"roles":     roleStrings,
		"exp":       now.Add(30 * 24 * time.Hour).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.cfg.Secret))
}

// parseRoles tolerates both []string and the []interface{} shape the JWT
// library decodes JSON arrays into
func parseRoles(raw interface{}) []types.Role {
	var roles []types.Role
	switch values := raw.(type) {
	case []interface{}:
		for _, v := range values {
			if s, ok := v.(string); ok {
				roles = append(roles, types.Role(s))
			}
		}
	case []string:
		for _, s := range values {
			roles = append(roles, types.Role(s))
		}
	}
	return roles
}
