package reference

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/reference/domain"
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
	require.NoError(t, conn.AutoMigrate(&domain.City{}))
	require.NoError(t, conn.Exec(`CREATE TABLE suppliers (id INTEGER PRIMARY KEY, city_id INTEGER)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE purchaser_profiles (id INTEGER PRIMARY KEY, city_ids TEXT NOT NULL DEFAULT '{}')`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(ServiceParams{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Authz: authorization.NewTestService(),
		Repo:  NewRepository(conn),
	})
	return svc, conn
}

func TestCityReadableByAnyAuthenticatedActor(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	city, err := svc.CreateCity(ctx, admin, domain.CityRequest{Name: "Kazan"})
	require.NoError(t, err)

	// A purchaser without a profile still sees cities.
	buyer := authorization.Actor{UserID: 9, Role: authorization.RolePurchaser}
	cities, err := svc.ListCities(ctx, buyer, "")
	require.NoError(t, err)
	require.Len(t, cities, 1)

	got, err := svc.GetCity(ctx, buyer, city.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kazan", got.Name)

	_, err = svc.ListCities(ctx, authorization.Actor{}, "")
	assert.ErrorIs(t, err, authorization.ErrUnauthenticated)
}

func TestCityWritesAreAdminOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	chief := authorization.Actor{UserID: 9, Role: authorization.RoleChiefPurchaser, Scope: authorization.NewScopeSet([]snowflake.ID{1}, nil)}
	_, err := svc.CreateCity(ctx, chief, domain.CityRequest{Name: "Omsk"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)

	city, err := svc.CreateCity(ctx, admin, domain.CityRequest{Name: "Omsk"})
	require.NoError(t, err)

	_, err = svc.UpdateCity(ctx, chief, city.ID, domain.CityRequest{Name: "Tomsk"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteCity(ctx, chief, city.ID), authorization.ErrForbidden)

	_, err = svc.CreateCity(ctx, admin, domain.CityRequest{Name: "Omsk"})
	assert.ErrorIs(t, err, domain.ErrCityExists)
}

func TestFilterCitiesByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Samara", "Saratov", "Perm"} {
		_, err := svc.CreateCity(ctx, admin, domain.CityRequest{Name: name})
		require.NoError(t, err)
	}

	cities, err := svc.ListCities(ctx, admin, "SAR")
	require.NoError(t, err)
	require.Len(t, cities, 1)
	assert.Equal(t, "Saratov", cities[0].Name)
}

func TestDeleteCityDetachesSuppliers(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	city, err := svc.CreateCity(ctx, admin, domain.CityRequest{Name: "Ufa"})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`INSERT INTO suppliers (id, city_id) VALUES (1, ?)`, city.ID).Error)
	require.NoError(t, conn.Exec(`INSERT INTO purchaser_profiles (id, city_ids) VALUES (1, ?)`, "{5,"+city.ID+"}").Error)

	require.NoError(t, svc.DeleteCity(ctx, admin, city.ID))

	var row struct {
		CityID *int64
	}
	require.NoError(t, conn.Raw(`SELECT city_id FROM suppliers WHERE id = 1`).Scan(&row).Error)
	assert.Nil(t, row.CityID)

	var profile struct {
		CityIDs string
	}
	require.NoError(t, conn.Raw(`SELECT city_ids FROM purchaser_profiles WHERE id = 1`).Scan(&profile).Error)
	assert.Equal(t, "{5}", profile.CityIDs)

	assert.ErrorIs(t, svc.DeleteCity(ctx, admin, city.ID), domain.ErrCityNotFound)
	_, err = svc.GetCity(ctx, admin, city.ID)
	assert.ErrorIs(t, err, domain.ErrCityNotFound)
}
