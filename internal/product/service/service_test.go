package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	orgdomain "github.com/smallbiznis/procura/internal/organization/domain"
	"github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/internal/product/repository"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	orgA snowflake.ID = 100
	orgB snowflake.ID = 200
)

var admin = authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}

func purchaserIn(orgs ...snowflake.ID) authorization.Actor {
	return authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet(orgs, nil)}
}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&orgdomain.Organization{}, &domain.Product{}, &domain.AlcoholProduct{}))
	require.NoError(t, conn.Exec(`CREATE TABLE prices (id INTEGER PRIMARY KEY, product_id INTEGER NOT NULL)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE price_alcohol (id INTEGER PRIMARY KEY, alcohol_id INTEGER NOT NULL)`).Error)

	now := time.Now().UTC()
	for _, org := range []orgdomain.Organization{
		{ID: orgA, Name: "A", Slug: "a", CreatedAt: now, UpdatedAt: now},
		{ID: orgB, Name: "B", Slug: "b", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&org).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Settings: config.NewStaticProcurementHolder(config.DefaultProcurementConfig()),
		Authz:    authorization.NewTestService(),
		Repo:     repository.Provide(),
	})
	return svc, conn
}

func TestCreateProductDefaultsTypeAndValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{
		OrganizationID: orgA.String(), Name: "Milk 3.2%", Quantity: 10, Unit: "l",
	})
	require.NoError(t, err)
	require.NotNil(t, item.Type)
	assert.Equal(t, "other", *item.Type)
	assert.Nil(t, item.ExciseStampRequired)

	_, err = svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{
		OrganizationID: orgA.String(), Name: "Broken", Quantity: -1,
	})
	var verr *validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Fields[0].Field)

	_, err = svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{
		OrganizationID: orgA.String(), Name: "Cake", Type: "pastry",
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Fields[0].Field)

	_, err = svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{OrganizationID: "999", Name: "Ghost"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestCreateAlcohol(t *testing.T) {
	svc, _ := newTestService(t)

	required := true
	item, err := svc.Create(context.Background(), admin, domain.KindAlcohol, domain.CreateRequest{
		OrganizationID: orgB.String(), Name: "Cabernet", Quantity: 6, Unit: "bottle", ExciseStampRequired: &required,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindAlcohol, item.Kind)
	require.NotNil(t, item.ExciseStampRequired)
	assert.True(t, *item.ExciseStampRequired)
	assert.Nil(t, item.Type)
}

func TestPurchaserSeesOnlyScopedProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{OrganizationID: orgA.String(), Name: "Bread"})
	require.NoError(t, err)
	hidden, err := svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{OrganizationID: orgB.String(), Name: "Butter"})
	require.NoError(t, err)

	resp, err := svc.List(ctx, purchaserIn(orgA), domain.KindProduct, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Bread", resp.Items[0].Name)
	assert.Equal(t, orgA.String(), resp.Items[0].OrganizationID)

	_, err = svc.Get(ctx, purchaserIn(orgA), domain.KindProduct, hidden.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	empty, err := svc.List(ctx, authorization.Actor{UserID: 8, Role: authorization.RolePurchaser}, domain.KindProduct, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	all, err := svc.List(ctx, admin, domain.KindProduct, domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestListFiltersByNameAndType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, req := range []domain.CreateRequest{
		{OrganizationID: orgA.String(), Name: "Vanilla ice cream", Type: "ice"},
		{OrganizationID: orgA.String(), Name: "Chocolate ice cream", Type: "ice"},
		{OrganizationID: orgA.String(), Name: "Kefir", Type: "milk"},
	} {
		_, err := svc.Create(ctx, admin, domain.KindProduct, req)
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, admin, domain.KindProduct, domain.ListRequest{Name: "ICE"})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)

	resp, err = svc.List(ctx, admin, domain.KindProduct, domain.ListRequest{Type: "milk"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Kefir", resp.Items[0].Name)
}

func TestUpdateOutsideScopeIsForbidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{OrganizationID: orgB.String(), Name: "Salt"})
	require.NoError(t, err)

	name := "Sea salt"
	_, err = svc.Update(ctx, purchaserIn(orgA), domain.KindProduct, item.ID, domain.UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	// Moving an item into an organization outside the actor's scope is also denied.
	own, err := svc.Create(ctx, purchaserIn(orgA), domain.KindProduct, domain.CreateRequest{OrganizationID: orgA.String(), Name: "Pepper"})
	require.NoError(t, err)
	target := orgB.String()
	_, err = svc.Update(ctx, purchaserIn(orgA), domain.KindProduct, own.ID, domain.UpdateRequest{OrganizationID: &target})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	quantity := 3
	updated, err := svc.Update(ctx, purchaserIn(orgA), domain.KindProduct, own.ID, domain.UpdateRequest{Name: &name, Quantity: &quantity})
	require.NoError(t, err)
	assert.Equal(t, "Sea salt", updated.Name)
	assert.Equal(t, 3, updated.Quantity)
}

func TestDeleteRemovesQuotesAndIsAdminOnly(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	item, err := svc.Create(ctx, admin, domain.KindProduct, domain.CreateRequest{OrganizationID: orgA.String(), Name: "Sugar"})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`INSERT INTO prices (id, product_id) VALUES (1, ?)`, item.ID).Error)

	assert.ErrorIs(t, svc.Delete(ctx, purchaserIn(orgA), domain.KindProduct, item.ID), authorization.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, admin, domain.KindProduct, item.ID))

	var count int64
	require.NoError(t, conn.Table("prices").Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.Delete(ctx, admin, domain.KindProduct, item.ID), domain.ErrNotFound)
}
