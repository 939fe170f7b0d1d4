package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/organization/domain"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/smallbiznis/procura/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var admin = authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Organization{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Settings: config.NewStaticProcurementHolder(config.DefaultProcurementConfig()),
		Authz:    authorization.NewTestService(),
		Repo:     repository.ProvideStore[domain.Organization](conn),
	})
}

func TestCreateOrganization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: "  Fresh Market  "})
	require.NoError(t, err)
	assert.Equal(t, "Fresh Market", org.Name)
	assert.Equal(t, "fresh-market", org.Slug)

	_, err = svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: "Fresh market"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateOrganizationRequiresAdmin(t *testing.T) {
	svc := newTestService(t)

	buyer := authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{1}, nil)}
	_, err := svc.Create(context.Background(), buyer, domain.CreateOrganizationRequest{Name: "Shadow"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	_, err = svc.Create(context.Background(), authorization.Actor{}, domain.CreateOrganizationRequest{Name: "Shadow"})
	assert.ErrorIs(t, err, authorization.ErrUnauthenticated)
}

func TestListOrganizationsScopedToProfile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: "Beta"})
	require.NoError(t, err)

	aID, err := snowflake.ParseString(a.ID)
	require.NoError(t, err)

	buyer := authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{aID}, nil)}
	resp, err := svc.List(ctx, buyer, domain.ListOrganizationRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Organizations, 1)
	assert.Equal(t, "Alpha", resp.Organizations[0].Name)

	unscoped := authorization.Actor{UserID: 8, Role: authorization.RolePurchaser}
	resp, err = svc.List(ctx, unscoped, domain.ListOrganizationRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Organizations)

	all, err := svc.List(ctx, admin, domain.ListOrganizationRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Organizations, 2)
}

func TestListOrganizationsPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"One", "Two", "Three"} {
		_, err := svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: name})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, admin, domain.ListOrganizationRequest{})
	require.NoError(t, err)
	require.Len(t, first.Organizations, 3)
	assert.False(t, first.HasMore)

	req := domain.ListOrganizationRequest{}
	req.PageSize = 2
	page, err := svc.List(ctx, admin, req)
	require.NoError(t, err)
	require.Len(t, page.Organizations, 2)
	require.True(t, page.HasMore)

	req.PageToken = page.NextPageToken
	rest, err := svc.List(ctx, admin, req)
	require.NoError(t, err)
	require.Len(t, rest.Organizations, 1)
	assert.False(t, rest.HasMore)
	assert.NotContains(t, []string{page.Organizations[0].ID, page.Organizations[1].ID}, rest.Organizations[0].ID)
}

func TestGetOrganizationOutOfScopeReadsAsNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: "Gamma"})
	require.NoError(t, err)

	buyer := authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{42}, nil)}
	_, err = svc.Get(ctx, buyer, org.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, admin, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestUpdateAndDeleteOrganization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, admin, domain.CreateOrganizationRequest{Name: "Delta"})
	require.NoError(t, err)

	name := "Delta Foods"
	desc := "wholesale"
	updated, err := svc.Update(ctx, admin, org.ID, domain.UpdateOrganizationRequest{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "delta-foods", updated.Slug)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "wholesale", *updated.Description)

	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)
	buyer := authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{orgID}, nil)}
	_, err = svc.Update(ctx, buyer, org.ID, domain.UpdateOrganizationRequest{Name: &name})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, admin, org.ID))
	_, err = svc.Get(ctx, admin, org.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
