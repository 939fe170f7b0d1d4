package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/procura/internal/audit/domain"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	orgdomain "github.com/smallbiznis/procura/internal/organization/domain"
	refdomain "github.com/smallbiznis/procura/internal/reference/domain"
	"github.com/smallbiznis/procura/internal/supplier/domain"
	"github.com/smallbiznis/procura/internal/supplier/repository"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const (
	orgA snowflake.ID = 100
	orgB snowflake.ID = 200
	kzn  snowflake.ID = 300
)

var admin = authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}

func purchaserIn(orgs ...snowflake.ID) authorization.Actor {
	return authorization.Actor{UserID: 7, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet(orgs, nil)}
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	svc    domain.Service
	tokens domain.TokenService
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&orgdomain.Organization{}, &refdomain.City{}, &domain.Supplier{}, &domain.SupplierToken{}))

	now := time.Now().UTC()
	for _, org := range []orgdomain.Organization{
		{ID: orgA, Name: "A", Slug: "a", CreatedAt: now, UpdatedAt: now},
		{ID: orgB, Name: "B", Slug: "b", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, conn.Create(&org).Error)
	}
	require.NoError(t, conn.Create(&refdomain.City{ID: kzn, Name: "Kazan", CreatedAt: now, UpdatedAt: now}).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	settings := config.NewStaticProcurementHolder(config.DefaultProcurementConfig())
	authz := authorization.NewTestService()

	return fixture{
		db:    conn,
		node:  node,
		clock: clk,
		svc: New(Params{
			DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Settings: settings, Authz: authz,
			Repo: repository.Provide(),
		}),
		tokens: NewTokenService(TokenParams{
			DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Settings: settings, Authz: authz,
			Repo: repository.Provide(), Tokens: repository.ProvideTokens(),
		}),
	}
}

func (f fixture) supplier(t *testing.T, org snowflake.ID) *domain.Response {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), admin, domain.CreateRequest{
		OrganizationID: org.String(), Name: "Fresh Farm", INN: "7701234567",
	})
	require.NoError(t, err)
	return resp
}

func TestCreateSupplierValidatesAndDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	city := kzn.String()
	resp, err := f.svc.Create(ctx, admin, domain.CreateRequest{
		OrganizationID: orgA.String(), Name: "Vino", INN: "770123456789", CityID: &city,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeProducts, resp.Type)
	require.NotNil(t, resp.CityID)
	assert.Equal(t, kzn.String(), *resp.CityID)

	_, err = f.svc.Create(ctx, admin, domain.CreateRequest{OrganizationID: orgA.String(), Name: "Bad", INN: "12ab"})
	var verr *validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "inn", verr.Fields[0].Field)

	ghost := "999"
	_, err = f.svc.Create(ctx, admin, domain.CreateRequest{OrganizationID: orgA.String(), Name: "Nowhere", INN: "7701234567", CityID: &ghost})
	assert.ErrorIs(t, err, domain.ErrInvalidCity)
}

func TestPurchaserSeesOnlyScopedSuppliers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.supplier(t, orgA)
	hidden := f.supplier(t, orgB)

	resp, err := f.svc.List(ctx, purchaserIn(orgA), domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Suppliers, 1)
	assert.Equal(t, orgA.String(), resp.Suppliers[0].OrganizationID)

	_, err = f.svc.Get(ctx, purchaserIn(orgA), hidden.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	name := "Renamed"
	_, err = f.svc.Update(ctx, purchaserIn(orgA), hidden.ID, domain.UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestUpdateClearsCity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	city := kzn.String()
	created, err := f.svc.Create(ctx, admin, domain.CreateRequest{OrganizationID: orgA.String(), Name: "Dairy", INN: "7701234567", CityID: &city})
	require.NoError(t, err)

	empty := ""
	updated, err := f.svc.Update(ctx, admin, created.ID, domain.UpdateRequest{CityID: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.CityID)
}

func TestDeleteSupplierIsAdminOnlyAndDropsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.supplier(t, orgA)
	_, err := f.tokens.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, purchaserIn(orgA), s.ID), authorization.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, admin, s.ID))

	var count int64
	require.NoError(t, f.db.Model(&domain.SupplierToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetOrCreateTokenReusesWithinTTLAndRotatesAfter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.supplier(t, orgA)

	first, err := f.tokens.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)

	f.clock.Advance(23 * time.Hour)
	second, err := f.tokens.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)

	f.clock.Advance(2 * time.Hour)
	third, err := f.tokens.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, third.Token)
	assert.Equal(t, f.clock.Now(), third.CreatedAt)

	var rows []domain.SupplierToken
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, third.Token, rows[0].Token)

	_, err = f.tokens.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestGetOrCreateTokenConcurrentCallersAgree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.supplier(t, orgA)

	const callers = 8
	results := make(chan string, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			resp, err := f.tokens.GetOrCreate(ctx, s.ID)
			if err != nil {
				errs <- err
				return
			}
			results <- resp.Token
		}()
	}

	seen := map[string]struct{}{}
	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			t.Fatalf("GetOrCreate: %v", err)
		case token := <-results:
			seen[token] = struct{}{}
		}
	}
	assert.Len(t, seen, 1)
}

func TestGetOrCreateTokenUnknownSupplier(t *testing.T) {
	f := newFixture(t)

	_, err := f.tokens.GetOrCreate(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.tokens.GetOrCreate(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidSupplier)
}

func TestRegenerateIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.supplier(t, orgA)

	issued, err := f.tokens.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)

	_, err = f.tokens.Regenerate(ctx, purchaserIn(orgA), s.ID)
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	fresh, err := f.tokens.Regenerate(ctx, admin, s.ID)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, fresh.Token)

	supplier, err := f.tokens.Authenticate(ctx, fresh.Token)
	require.NoError(t, err)
	assert.Equal(t, s.ID, supplier.ID.String())
}

type failingAudit struct{}

func (failingAudit) AuditLog(context.Context, *snowflake.ID, string, *string, string, string, *string, map[string]any) error {
	return errors.New("audit store unavailable")
}

func (failingAudit) List(context.Context, auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func TestRegenerateLogsFailedAuditWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.supplier(t, orgA)

	core, logs := observer.New(zap.WarnLevel)
	tokens := NewTokenService(TokenParams{
		DB: f.db, Log: zap.New(core), GenID: f.node, Clock: f.clock,
		Settings: config.NewStaticProcurementHolder(config.DefaultProcurementConfig()),
		Authz:    authorization.NewTestService(),
		Repo:     repository.Provide(), Tokens: repository.ProvideTokens(),
		AuditSvc: failingAudit{},
	})

	fresh, err := tokens.Regenerate(ctx, admin, s.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.Token)

	entries := logs.FilterMessage("audit write failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "supplier_token.regenerated", fields["action"])
	assert.Equal(t, "audit store unavailable", fields["error"])
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.supplier(t, orgA)

	issued, err := f.tokens.GetOrCreate(ctx, s.ID)
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	_, err = f.tokens.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	_, err = f.tokens.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}
