package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/comparison/domain"
	"github.com/smallbiznis/procura/internal/config"
	orgdomain "github.com/smallbiznis/procura/internal/organization/domain"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	pricerepo "github.com/smallbiznis/procura/internal/price/repository"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	productrepo "github.com/smallbiznis/procura/internal/product/repository"
	"github.com/smallbiznis/procura/internal/providers/pdf"
	supplierdomain "github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	orgA snowflake.ID = 100
	orgB snowflake.ID = 200

	milk   snowflake.ID = 1001
	butter snowflake.ID = 1002
	wine   snowflake.ID = 2001
	farm   snowflake.ID = 3001
	farmB  snowflake.ID = 3002
)

type capturingPDF struct {
	sheet pdf.ComparisonSheet
}

func (c *capturingPDF) GenerateComparison(_ context.Context, sheet pdf.ComparisonSheet) (io.Reader, error) {
	c.sheet = sheet
	return strings.NewReader("%PDF-1.3"), nil
}

func purchaserIn(orgs ...snowflake.ID) authorization.Actor {
	return authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet(orgs, nil)}
}

func newTestService(t *testing.T) (domain.Service, *capturingPDF) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&orgdomain.Organization{},
		&productdomain.Product{},
		&productdomain.AlcoholProduct{},
		&supplierdomain.Supplier{},
		&pricedomain.Price{},
		&pricedomain.PriceAlcohol{},
	))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&[]orgdomain.Organization{
		{ID: orgA, Name: "North", Slug: "north", CreatedAt: now, UpdatedAt: now},
		{ID: orgB, Name: "South", Slug: "south", CreatedAt: now, UpdatedAt: now},
	}).Error)
	require.NoError(t, conn.Create(&[]productdomain.Product{
		{ID: milk, OrganizationID: orgA, Name: "Milk", Quantity: 10, Unit: "l", Type: "milk", LastUpdated: now, CreatedAt: now},
		{ID: butter, OrganizationID: orgB, Name: "Butter", Quantity: 3, Unit: "kg", Type: "milk", LastUpdated: now, CreatedAt: now.Add(time.Minute)},
	}).Error)
	require.NoError(t, conn.Create(&productdomain.AlcoholProduct{ID: wine, OrganizationID: orgA, Name: "Merlot", Unit: "bottle", LastUpdated: now, CreatedAt: now}).Error)
	require.NoError(t, conn.Create(&[]supplierdomain.Supplier{
		{ID: farm, OrganizationID: orgA, Name: "Farm", INN: "7701234567", Type: supplierdomain.TypeProducts, CreatedAt: now, UpdatedAt: now},
		{ID: farmB, OrganizationID: orgB, Name: "Farm B", INN: "7701234569", Type: supplierdomain.TypeProducts, CreatedAt: now, UpdatedAt: now},
	}).Error)

	manufacturer := "Dairy Co"
	require.NoError(t, conn.Create(&[]pricedomain.Price{
		{ID: 5001, ProductID: milk, SupplierID: farm, Price: decimal.NewNullDecimal(decimal.RequireFromString("1.20")), Manufacturer: &manufacturer, DateAdded: now, DateUpdated: now},
		{ID: 5002, ProductID: milk, SupplierID: farmB, Price: decimal.NewNullDecimal(decimal.RequireFromString("1.10")), DateAdded: now.Add(time.Hour), DateUpdated: now.Add(time.Hour)},
		{ID: 5003, ProductID: butter, SupplierID: farmB, Price: decimal.NewNullDecimal(decimal.RequireFromString("7.00")), DateAdded: now, DateUpdated: now},
	}).Error)

	renderer := &capturingPDF{}
	svc := New(Params{
		DB:          conn,
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(now),
		Settings:    config.NewStaticProcurementHolder(config.DefaultProcurementConfig()),
		Authz:       authorization.NewTestService(),
		ProductRepo: productrepo.Provide(),
		PriceRepo:   pricerepo.Provide(),
		PDF:         renderer,
	})
	return svc, renderer
}

func TestProjectionShowsAllQuotesOnVisibleItems(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.List(context.Background(), purchaserIn(orgA), "product", domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)

	item := resp.Items[0]
	assert.Equal(t, milk.String(), item.ID)
	assert.Equal(t, "North", item.OrganizationName)
	require.Len(t, item.Prices, 2)
	// Farm B sits outside the purchaser's organizations but its quote is still listed.
	assert.Equal(t, farmB.String(), item.Prices[0].SupplierID)
	assert.Equal(t, "Farm B", item.Prices[0].SupplierName)
	assert.Equal(t, farm.String(), item.Prices[1].SupplierID)
	require.NotNil(t, item.Prices[1].Manufacturer)
	assert.Equal(t, "Dairy Co", *item.Prices[1].Manufacturer)
	assert.Equal(t, "1.2", item.Prices[1].Price.String())
}

func TestProjectionForAdminCoversEveryOrganization(t *testing.T) {
	svc, _ := newTestService(t)

	admin := authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}
	resp, err := svc.List(context.Background(), admin, "products", domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, butter.String(), resp.Items[0].ID)
	assert.Len(t, resp.Items[0].Prices, 1)
}

func TestProjectionEmptyCases(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.List(ctx, purchaserIn(orgA), "furniture", domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	unscoped := authorization.Actor{UserID: 8, Role: authorization.RolePurchaser}
	resp, err = svc.List(ctx, unscoped, "product", domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	resp, err = svc.List(ctx, purchaserIn(orgA), "alcohol", domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.NotNil(t, resp.Items[0].Prices)
	assert.Empty(t, resp.Items[0].Prices)

	_, err = svc.List(ctx, authorization.Actor{}, "product", domain.ListRequest{})
	assert.ErrorIs(t, err, authorization.ErrUnauthenticated)
}

func TestProjectionPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	admin := authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}

	first, err := svc.List(context.Background(), admin, "product", domain.ListRequest{Pagination: pagination.Pagination{PageSize: 1}})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	require.True(t, first.HasMore)
	assert.Equal(t, butter.String(), first.Items[0].ID)

	second, err := svc.List(context.Background(), admin, "product", domain.ListRequest{
		Pagination: pagination.Pagination{PageSize: 1, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, milk.String(), second.Items[0].ID)
	assert.Len(t, second.Items[0].Prices, 2)
}

func TestExportPDFRendersScopedItems(t *testing.T) {
	svc, renderer := newTestService(t)

	doc, err := svc.ExportPDF(context.Background(), purchaserIn(orgA), "product")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, "Supplier price comparison", renderer.sheet.Title)
	assert.Equal(t, "product", renderer.sheet.Kind)
	require.Len(t, renderer.sheet.Items, 1)
	assert.Equal(t, "Milk", renderer.sheet.Items[0].Name)
	require.Len(t, renderer.sheet.Items[0].Quotes, 2)
	assert.Equal(t, "1.10", renderer.sheet.Items[0].Quotes[0].Price)
	assert.Equal(t, "Dairy Co", renderer.sheet.Items[0].Quotes[1].Manufacturer)
}
