package seed

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/auth/password"
	"github.com/smallbiznis/procura/internal/clock"
	userdomain "github.com/smallbiznis/procura/internal/user/domain"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seededAt = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func newSeedDeps(t *testing.T) (*gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&userdomain.User{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return conn, node, clock.NewFakeClock(seededAt)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	conn, node, clk := newSeedDeps(t)

	created, err := EnsureAdmin(context.Background(), conn, node, clk, " root ", "s3cret-admin")
	require.NoError(t, err)
	assert.True(t, created)

	clk.Advance(time.Hour)
	created, err = EnsureAdmin(context.Background(), conn, node, clk, "root", "other-password")
	require.NoError(t, err)
	assert.False(t, created)

	var users []userdomain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "root", users[0].Username)
	assert.Equal(t, "admin", users[0].Role)
	assert.True(t, password.Verify("s3cret-admin", users[0].PasswordHash))
	assert.False(t, password.Verify("other-password", users[0].PasswordHash))
	assert.True(t, seededAt.Equal(users[0].CreatedAt))
	assert.True(t, seededAt.Equal(users[0].UpdatedAt))
}

func TestEnsureAdminNeedsPassword(t *testing.T) {
	conn, node, clk := newSeedDeps(t)

	_, err := EnsureAdmin(context.Background(), conn, node, clk, "", "")
	assert.ErrorIs(t, err, ErrAdminPasswordRequired)
}

func TestEnsureAdminRejectsShortPassword(t *testing.T) {
	conn, node, clk := newSeedDeps(t)

	created, err := EnsureAdmin(context.Background(), conn, node, clk, "root", "s3cret")
	assert.ErrorIs(t, err, password.ErrTooShort)
	assert.False(t, created)

	var count int64
	require.NoError(t, conn.Model(&userdomain.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnsureAdminNeedsClock(t *testing.T) {
	conn, node, _ := newSeedDeps(t)

	_, err := EnsureAdmin(context.Background(), conn, node, nil, "root", "s3cret-admin")
	assert.Error(t, err)
}
