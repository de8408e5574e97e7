package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gameplatform/role-service/internal/config"
	"github.com/gameplatform/role-service/internal/domain/entity"
	domainErrors "github.com/gameplatform/role-service/internal/domain/errors"
	"github.com/gameplatform/role-service/internal/domain/interfaces"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 5 * time.Second

// Client talks to the platform directory API, which owns users,
// groups, scopes, identity providers, organizations and applications.
// It backs every collaborator interface the role store consumes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ interfaces.ScopeCatalog         = (*Client)(nil)
	_ interfaces.IdpGroupCatalog      = (*Client)(nil)
	_ interfaces.OrganizationResolver = (*Client)(nil)
	_ interfaces.ApplicationResolver  = (*Client)(nil)
	_ interfaces.TenantLookup         = (*Client)(nil)
)

// NewClient creates a directory API client.
func NewClient(cfg config.DirectoryConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("directory_client"),
	}
}

// Users returns the user-facing resolver view of the client.
func (c *Client) Users() interfaces.IdentityResolver {
	return &userResolver{c}
}

// Groups returns the group-facing resolver view of the client.
func (c *Client) Groups() interfaces.GroupResolver {
	return &groupResolver{c}
}

func (c *Client) ScopesForTenant(ctx context.Context, tenantDomain string) ([]string, error) {
	var out struct {
		Scopes []string `json:"scopes"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/scopes", url.PathEscape(tenantDomain))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Scopes, nil
}

func (c *Client) GroupsForIdp(ctx context.Context, idpID, tenantDomain string) ([]entity.IdpGroup, error) {
	var out struct {
		Groups []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"groups"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/idps/%s/groups",
		url.PathEscape(tenantDomain), url.PathEscape(idpID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		if domainErrors.IsNotFound(err) {
			return nil, domainErrors.NewDomainError(domainErrors.CodeIdpNotFound,
				fmt.Sprintf("identity provider %s is not configured", idpID))
		}
		return nil, err
	}
	groups := make([]entity.IdpGroup, 0, len(out.Groups))
	for _, g := range out.Groups {
		groups = append(groups, entity.IdpGroup{IdpID: idpID, GroupID: g.ID, GroupName: g.Name})
	}
	return groups, nil
}

func (c *Client) OrganizationIDForTenant(ctx context.Context, tenantDomain string) (string, error) {
	var out struct {
		OrganizationID string `json:"organization_id"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/organization", url.PathEscape(tenantDomain))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.OrganizationID, nil
}

func (c *Client) OrganizationName(ctx context.Context, orgID string) (string, error) {
	var out struct {
		Name string `json:"name"`
	}
	path := fmt.Sprintf("/api/v1/organizations/%s", url.PathEscape(orgID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (c *Client) ApplicationName(ctx context.Context, appID, tenantDomain string) (string, error) {
	var out struct {
		Name string `json:"name"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/applications/%s",
		url.PathEscape(tenantDomain), url.PathEscape(appID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (c *Client) AssociatedApplications(ctx context.Context, roleID, tenantDomain string) ([]entity.AssociatedApplication, error) {
	var out struct {
		Applications []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"applications"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/roles/%s/applications",
		url.PathEscape(tenantDomain), url.PathEscape(roleID))
	if err := c.getJSON(ctx, path, &out); err != nil {
		if domainErrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	apps := make([]entity.AssociatedApplication, 0, len(out.Applications))
	for _, a := range out.Applications {
		apps = append(apps, entity.AssociatedApplication{ID: a.ID, Name: a.Name})
	}
	return apps, nil
}

func (c *Client) OwnerUsername(ctx context.Context, tenantDomain string) (string, error) {
	var out struct {
		Owner string `json:"owner"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/owner", url.PathEscape(tenantDomain))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", err
	}
	return out.Owner, nil
}

type userResolver struct {
	c *Client
}

func (r *userResolver) NamesByIDs(ctx context.Context, ids []string, tenantDomain string) (map[string]string, error) {
	return r.c.resolve(ctx, tenantDomain, "users", "names-by-ids", ids)
}

func (r *userResolver) IDsByNames(ctx context.Context, names []string, tenantDomain string) (map[string]string, error) {
	return r.c.resolve(ctx, tenantDomain, "users", "ids-by-names", names)
}

func (r *userResolver) IDByName(ctx context.Context, name, tenantDomain string) (string, error) {
	resolved, err := r.IDsByNames(ctx, []string{name}, tenantDomain)
	if err != nil {
		return "", err
	}
	id, ok := resolved[name]
	if !ok {
		return "", fmt.Errorf("user %s: %w", name, domainErrors.ErrNotFound)
	}
	return id, nil
}

func (r *userResolver) NameByID(ctx context.Context, id, tenantDomain string) (string, error) {
	resolved, err := r.NamesByIDs(ctx, []string{id}, tenantDomain)
	if err != nil {
		return "", err
	}
	name, ok := resolved[id]
	if !ok {
		return "", fmt.Errorf("user %s: %w", id, domainErrors.ErrNotFound)
	}
	return name, nil
}

type groupResolver struct {
	c *Client
}

func (r *groupResolver) NamesByIDs(ctx context.Context, ids []string, tenantDomain string) (map[string]string, error) {
	return r.c.resolve(ctx, tenantDomain, "groups", "names-by-ids", ids)
}

func (r *groupResolver) IDsByNames(ctx context.Context, names []string, tenantDomain string) (map[string]string, error) {
	return r.c.resolve(ctx, tenantDomain, "groups", "ids-by-names", names)
}

// resolve calls the bulk resolution endpoints. Entries the directory
// cannot resolve are simply absent from the response map.
func (c *Client) resolve(ctx context.Context, tenantDomain, kind, op string, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	var out struct {
		Resolved map[string]string `json:"resolved"`
	}
	path := fmt.Sprintf("/api/v1/tenants/%s/%s/%s", url.PathEscape(tenantDomain), kind, op)
	if err := c.postJSON(ctx, path, map[string][]string{"keys": keys}, &out); err != nil {
		return nil, err
	}
	if out.Resolved == nil {
		out.Resolved = map[string]string{}
	}
	return out.Resolved, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode directory request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Directory API request failed", zap.String("path", path), zap.Error(err))
		return domainErrors.NewServerError("directory API request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("directory API %s: %w", path, domainErrors.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		respBody, _ := io.ReadAll(resp.Body)
		c.logger.Error("Directory API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("path", path),
			zap.ByteString("response_body", respBody),
		)
		return domainErrors.NewServerError(
			fmt.Sprintf("directory API returned status %d", resp.StatusCode), domainErrors.ErrInternal)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domainErrors.NewServerError("failed to decode directory response", err)
	}
	return nil
}
