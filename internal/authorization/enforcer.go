package authorization

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// NewEnforcer loads role rules persisted through the gorm adapter and seeds
// the built-in ones.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer holds the built-in rules without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	purchaser := RolePurchaser.subject()
	chief := RoleChiefPurchaser.subject()

	policies := [][]string{
		{RoleAdmin.subject(), "*", "*"},

		{purchaser, string(ObjectOrganization), string(ActionRead)},
		{purchaser, string(ObjectCity), string(ActionRead)},
		{purchaser, string(ObjectProduct), string(ActionRead)},
		{purchaser, string(ObjectProduct), string(ActionWrite)},
		{purchaser, string(ObjectAlcoholProduct), string(ActionRead)},
		{purchaser, string(ObjectAlcoholProduct), string(ActionWrite)},
		{purchaser, string(ObjectSupplier), string(ActionRead)},
		{purchaser, string(ObjectSupplier), string(ActionWrite)},
		{purchaser, string(ObjectPrice), string(ActionRead)},
		{purchaser, string(ObjectPrice), string(ActionWrite)},
		{purchaser, string(ObjectPriceRequest), string(ActionRead)},
		{purchaser, string(ObjectPriceRequest), string(ActionWrite)},
		{purchaser, string(ObjectPriceRequest), string(ActionDelete)},

		{chief, string(ObjectUser), string(ActionRead)},
		{chief, string(ObjectPurchaserProfile), string(ActionRead)},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	has, err := enforcer.HasGroupingPolicy(chief, purchaser)
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy(chief, purchaser); err != nil {
			return err
		}
	}
	return nil
}
