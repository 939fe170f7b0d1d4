package seed

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/auth/password"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	userdomain "github.com/smallbiznis/procura/internal/user/domain"
	"gorm.io/gorm"
)

const defaultAdminUsername = "admin"

// ErrAdminPasswordRequired is returned when no admin exists yet and no
// bootstrap password was configured.
var ErrAdminPasswordRequired = errors.New("admin_password_required")

// EnsureAdmin creates the bootstrap admin account unless an active admin
// already exists. It is safe to call on every start.
func EnsureAdmin(ctx context.Context, db *gorm.DB, node *snowflake.Node, clk clock.Clock, username, rawPassword string) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}
	if node == nil {
		return false, errors.New("seed id generator is required")
	}
	if clk == nil {
		return false, errors.New("seed clock is required")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}

	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userdomain.User{}).
			Where("role = ? AND is_active = ?", string(authorization.RoleAdmin), true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		if rawPassword == "" {
			return ErrAdminPasswordRequired
		}
		hashed, err := password.Hash(rawPassword)
		if err != nil {
			return err
		}

		now := clk.Now().UTC()
		user := userdomain.User{
			ID:           node.Generate(),
			Username:     username,
			PasswordHash: hashed,
			Role:         string(authorization.RoleAdmin),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
