package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor authorization.Actor, req CreateUserRequest) (*UserResponse, error)
	Get(ctx context.Context, actor authorization.Actor, id string) (*UserResponse, error)
	List(ctx context.Context, actor authorization.Actor, req ListUserRequest) (ListUserResponse, error)
	Update(ctx context.Context, actor authorization.Actor, id string, req UpdateUserRequest) (*UserResponse, error)
	Me(ctx context.Context, actor authorization.Actor) (*UserResponse, error)

	CreateProfile(ctx context.Context, actor authorization.Actor, req ProfileRequest) (*ProfileResponse, error)
	ReplaceProfile(ctx context.Context, actor authorization.Actor, id string, req ProfileRequest) (*ProfileResponse, error)
	GetProfile(ctx context.Context, actor authorization.Actor, id string) (*ProfileResponse, error)
	ListProfiles(ctx context.Context, actor authorization.Actor, req pagination.Pagination) (ListProfileResponse, error)

	// ResolveActor loads the role and scope set behind an authenticated user id.
	ResolveActor(ctx context.Context, userID string) (authorization.Actor, error)
	// Authenticate checks a username and password pair.
	Authenticate(ctx context.Context, username, password string) (*User, error)
}

type CreateUserRequest struct {
	Username string  `json:"username" validate:"notblank,max=150"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role" validate:"required,oneof=admin chief_purchaser purchaser"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
}

type UpdateUserRequest struct {
	Role     *string `json:"role" validate:"omitempty,oneof=admin chief_purchaser purchaser"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	IsActive *bool   `json:"is_active"`
}

type ListUserRequest struct {
	pagination.Pagination
	Role     string `form:"role"`
	Username string `form:"username"`
	IsActive *bool  `form:"is_active"`
}

type ProfileRequest struct {
	UserID          string   `json:"user_id"`
	OrganizationIDs []string `json:"organization_ids"`
	CityIDs         []string `json:"city_ids"`
}

type UserResponse struct {
	ID        string           `json:"id"`
	Username  string           `json:"username"`
	Role      string           `json:"role"`
	Phone     *string          `json:"phone,omitempty"`
	IsActive  bool             `json:"is_active"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []UserResponse `json:"users"`
}

type ProfileResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	OrganizationIDs []string  `json:"organization_ids"`
	CityIDs         []string  `json:"city_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ListProfileResponse struct {
	pagination.PageInfo
	Profiles []ProfileResponse `json:"purchaser_profiles"`
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidProfile      = errors.New("invalid_profile")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCity         = errors.New("invalid_city")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrProfileNotFound     = errors.New("profile_not_found")
	ErrUsernameTaken       = errors.New("username_taken")
	ErrProfileExists       = errors.New("profile_exists")
	ErrAdminProfile        = errors.New("admin_profile_not_allowed")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrUserInactive        = errors.New("user_inactive")
)
