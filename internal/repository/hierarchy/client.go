package hierarchy

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"github.com/vendra/vendra/internal/cache"
	"github.com/vendra/vendra/internal/config"
	domain "github.com/vendra/vendra/internal/domain/hierarchy"
	ierr "github.com/vendra/vendra/internal/errors"
	"github.com/vendra/vendra/internal/httpclient"
	"github.com/vendra/vendra/internal/logger"
	"github.com/vendra/vendra/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// scopeResponse is the wire shape of the scope resolution endpoint
type scopeResponse struct {
	OrgScoped  bool     `json:"org_scoped"`
	CompanyIDs []string `json:"company_ids"`
}

type client struct {
	http   httpclient.Client
	cfg    config.HierarchyConfig
	cache  cache.Cache
	logger *logger.Logger
}

// NewScopeResolver builds the HTTP-backed resolver against the hierarchy
// service. Resolved scopes are memoized per caller for the configured TTL so
// a burst of admin requests does not hammer the upstream.
func NewScopeResolver(httpClient httpclient.Client, cfg *config.Configuration, cacheStore cache.Cache, logger *logger.Logger) domain.ScopeResolver {
	return &client{
		http:   httpClient,
		cfg:    cfg.Hierarchy,
		cache:  cacheStore,
		logger: logger,
	}
}

func (c *client) AccessibleCompanyIDs(ctx context.Context) ([]string, error) {
	scope, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return scope.CompanyIDs, nil
}

func (c *client) CanAccessCompany(ctx context.Context, companyID string) (bool, error) {
	scope, err := c.resolve(ctx)
	if err != nil {
		return false, err
	}
	if scope.OrgScoped {
		return true, nil
	}
	return lo.Contains(scope.CompanyIDs, companyID), nil
}

func (c *client) IsOrgScoped(ctx context.Context) (bool, error) {
	scope, err := c.resolve(ctx)
	if err != nil {
		return false, err
	}
	return scope.OrgScoped, nil
}

func (c *client) resolve(ctx context.Context) (*scopeResponse, error) {
	tenantID := types.GetTenantID(ctx)
	userID := types.GetUserID(ctx)
	cacheKey := cache.GenerateKey(cache.PrefixScope, tenantID, userID)

	if cached, found := c.cache.Get(ctx, cacheKey); found {
		if scope, ok := cached.(*scopeResponse); ok {
			return scope, nil
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	resp, err := c.http.Send(reqCtx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/scopes/%s/companies", c.cfg.BaseURL, userID),
		Headers: map[string]string{
			"X-Tenant-ID": tenantID,
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Scope resolution service is unreachable").
			Mark(ierr.ErrHTTPClient)
	}

	var scope scopeResponse
	if err := json.Unmarshal(resp.Body, &scope); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Scope resolution service returned an unexpected payload").
			Mark(ierr.ErrHTTPClient)
	}

	c.cache.Set(ctx, cacheKey, &scope, c.cfg.CacheTTL())
	c.logger.Debugw("resolved caller scope",
		"tenant_id", tenantID,
		"user_id", userID,
		"org_scoped", scope.OrgScoped,
		"company_count", len(scope.CompanyIDs),
	)
	return &scope, nil
}
