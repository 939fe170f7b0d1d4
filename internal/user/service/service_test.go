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
	refdomain "github.com/smallbiznis/procura/internal/reference/domain"
	"github.com/smallbiznis/procura/internal/user/domain"
	"github.com/smallbiznis/procura/internal/user/repository"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var admin = authorization.Actor{UserID: 1, Role: authorization.RoleAdmin}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &orgdomain.Organization{}, &refdomain.City{}))
	require.NoError(t, conn.Exec(`CREATE TABLE purchaser_profiles (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL UNIQUE,
		organization_ids TEXT NOT NULL,
		city_ids TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)

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

func seedOrg(t *testing.T, conn *gorm.DB, id snowflake.ID, name string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&orgdomain.Organization{ID: id, Name: name, Slug: name, CreatedAt: now, UpdatedAt: now}).Error)
}

func TestCreateUserValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	phone := "12"
	_, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "ivan", Password: "long-enough", Role: "purchaser", Phone: &phone})
	var verr *validation.Errors
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "phone", verr.Fields[0].Field)
	assert.Equal(t, "invalid_phone", verr.Fields[0].Code)

	_, err = svc.Create(ctx, admin, domain.CreateUserRequest{Username: "ivan", Password: "long-enough", Role: "owner"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Fields[0].Field)

	phone = "+79991234567"
	user, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "ivan", Password: "long-enough", Role: "purchaser", Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "purchaser", user.Role)
	assert.True(t, user.IsActive)

	_, err = svc.Create(ctx, admin, domain.CreateUserRequest{Username: "ivan", Password: "long-enough", Role: "purchaser"})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	chief := authorization.Actor{UserID: 5, Role: authorization.RoleChiefPurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{1}, nil)}
	_, err := svc.Create(context.Background(), chief, domain.CreateUserRequest{Username: "x", Password: "long-enough", Role: "purchaser"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestResolveActorCarriesProfileScope(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	seedOrg(t, conn, 100, "alpha")
	seedOrg(t, conn, 200, "beta")

	buyer, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "buyer", Password: "long-enough", Role: "purchaser"})
	require.NoError(t, err)

	actor, err := svc.ResolveActor(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, authorization.RolePurchaser, actor.Role)
	assert.Nil(t, actor.Scope)

	profile, err := svc.CreateProfile(ctx, admin, domain.ProfileRequest{UserID: buyer.ID, OrganizationIDs: []string{"100", "100"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, profile.OrganizationIDs)

	actor, err = svc.ResolveActor(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, actor.Scope.HasOrganization(100))
	assert.False(t, actor.Scope.HasOrganization(200))

	_, err = svc.CreateProfile(ctx, admin, domain.ProfileRequest{UserID: buyer.ID})
	assert.ErrorIs(t, err, domain.ErrProfileExists)

	replaced, err := svc.ReplaceProfile(ctx, admin, profile.ID, domain.ProfileRequest{OrganizationIDs: []string{"200"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"200"}, replaced.OrganizationIDs)

	actor, err = svc.ResolveActor(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, actor.Scope.HasOrganization(200))
	assert.False(t, actor.Scope.HasOrganization(100))
}

func TestProfileRejectsUnknownOrganizationAndAdmins(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	buyer, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "buyer", Password: "long-enough", Role: "purchaser"})
	require.NoError(t, err)
	_, err = svc.CreateProfile(ctx, admin, domain.ProfileRequest{UserID: buyer.ID, OrganizationIDs: []string{"999"}})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	boss, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "boss", Password: "long-enough", Role: "admin"})
	require.NoError(t, err)
	_, err = svc.CreateProfile(ctx, admin, domain.ProfileRequest{UserID: boss.ID})
	assert.ErrorIs(t, err, domain.ErrAdminProfile)
}

func TestPromotionToAdminDropsProfile(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	seedOrg(t, conn, 100, "alpha")

	buyer, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "buyer", Password: "long-enough", Role: "purchaser"})
	require.NoError(t, err)
	_, err = svc.CreateProfile(ctx, admin, domain.ProfileRequest{UserID: buyer.ID, OrganizationIDs: []string{"100"}})
	require.NoError(t, err)

	role := "admin"
	updated, err := svc.Update(ctx, admin, buyer.ID, domain.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "admin", updated.Role)
	assert.Nil(t, updated.Profile)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "olga", Password: "long-enough", Role: "chief_purchaser"})
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "olga", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID.String())

	_, err = svc.Authenticate(ctx, "olga", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "long-enough")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	inactive := false
	_, err = svc.Update(ctx, admin, created.ID, domain.UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "olga", "long-enough")
	assert.ErrorIs(t, err, domain.ErrUserInactive)
	_, err = svc.ResolveActor(ctx, created.ID)
	assert.ErrorIs(t, err, authorization.ErrUnauthenticated)
}

func TestUserVisibility(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, admin, domain.CreateUserRequest{Username: "petr", Password: "long-enough", Role: "purchaser"})
	require.NoError(t, err)

	buyer := authorization.Actor{UserID: 50, Role: authorization.RolePurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{1}, nil)}
	list, err := svc.List(ctx, buyer, domain.ListUserRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Users)
	_, err = svc.Get(ctx, buyer, created.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	chief := authorization.Actor{UserID: 51, Role: authorization.RoleChiefPurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{1}, nil)}
	list, err = svc.List(ctx, chief, domain.ListUserRequest{Role: "purchaser"})
	require.NoError(t, err)
	require.Len(t, list.Users, 1)
	assert.Equal(t, "petr", list.Users[0].Username)

	createdID, err := snowflake.ParseString(created.ID)
	require.NoError(t, err)
	me, err := svc.Me(ctx, authorization.Actor{UserID: createdID, Role: authorization.RolePurchaser})
	require.NoError(t, err)
	assert.Equal(t, "petr", me.Username)
}
