package authorization

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Enforcer is the slice of casbin used for role rules.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
}

type Object string

const (
	ObjectOrganization     Object = "organization"
	ObjectCity             Object = "city"
	ObjectUser             Object = "user"
	ObjectPurchaserProfile Object = "purchaser_profile"
	ObjectProduct          Object = "product"
	ObjectAlcoholProduct   Object = "alcohol_product"
	ObjectSupplier         Object = "supplier"
	ObjectSupplierToken    Object = "supplier_token"
	ObjectPrice            Object = "price"
	ObjectPriceRequest     Object = "price_request"
	ObjectAuditLog         Object = "audit_log"
)

// orgLinked reports whether rows of the object belong to an organization.
func (o Object) orgLinked() bool {
	switch o {
	case ObjectCity, ObjectUser, ObjectPurchaserProfile, ObjectAuditLog:
		return false
	default:
		return true
	}
}

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// Resource is a single row being acted on. OrgID is the organization the row
// belongs to, directly or through its item or supplier. OwnerID is set for
// rows that have an owning user.
type Resource struct {
	Object  Object
	OrgID   snowflake.ID
	OwnerID snowflake.ID
}

// Visibility is the subset of organizations whose rows an actor may list.
// The zero value sees nothing.
type Visibility struct {
	all           bool
	organizations []snowflake.ID
}

func (v Visibility) All() bool { return v.all }

func (v Visibility) Empty() bool { return !v.all && len(v.organizations) == 0 }

func (v Visibility) Organizations() []snowflake.ID { return v.organizations }

func (v Visibility) Allows(orgID snowflake.ID) bool {
	if v.all {
		return true
	}
	for _, id := range v.organizations {
		if id == orgID {
			return true
		}
	}
	return false
}

// Scope restricts a query to visible rows through the given organization column.
func (v Visibility) Scope(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case v.all:
			return db
		case len(v.organizations) == 0:
			return db.Where("1 = 0")
		default:
			return db.Where(column+" IN ?", v.organizations)
		}
	}
}

// Evaluate decides whether actor may perform act on res. It has no side
// effects; callers decide how a denial is surfaced.
func Evaluate(enforcer Enforcer, actor Actor, res Resource, act Action) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	allowed, err := enforcer.Enforce(actor.Role.subject(), string(res.Object), string(act))
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}

	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleChiefPurchaser, RolePurchaser:
		// deleting is limited to the actor's own rows, whatever their scope
		if act == ActionDelete {
			if res.OwnerID == 0 || res.OwnerID != actor.UserID {
				return ErrForbidden
			}
			return nil
		}
		if !res.Object.orgLinked() {
			return nil
		}
		if !actor.Scope.HasOrganization(res.OrgID) {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// Visible resolves which rows of object the actor may list.
func Visible(enforcer Enforcer, actor Actor, object Object) Visibility {
	if !actor.Authenticated() {
		return Visibility{}
	}
	allowed, err := enforcer.Enforce(actor.Role.subject(), string(object), string(ActionRead))
	if err != nil || !allowed {
		return Visibility{}
	}

	switch actor.Role {
	case RoleAdmin:
		return Visibility{all: true}
	case RoleChiefPurchaser, RolePurchaser:
		if !object.orgLinked() {
			return Visibility{all: true}
		}
		if actor.Scope == nil {
			return Visibility{}
		}
		return Visibility{organizations: actor.Scope.Organizations()}
	default:
		return Visibility{}
	}
}
