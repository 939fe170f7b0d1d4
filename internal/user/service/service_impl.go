package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/smallbiznis/procura/internal/auth/password"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/config"
	"github.com/smallbiznis/procura/internal/user/domain"
	"github.com/smallbiznis/procura/internal/validation"
	"github.com/smallbiznis/procura/pkg/db"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Settings *config.ProcurementHolder
	Authz    authorization.Service
	Repo     domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	settings *config.ProcurementHolder
	authz    authorization.Service
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		settings: p.Settings,
		authz:    p.Authz,
		repo:     p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, actor authorization.Actor, req domain.CreateUserRequest) (*domain.UserResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectUser}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Role = strings.TrimSpace(req.Role)
	req.Phone = normalizeText(req.Phone)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	role, err := authorization.ParseRole(req.Role)
	if err != nil {
		return nil, validation.Field("role", "invalid_choice", "unknown role")
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     req.Username,
		PasswordHash: hash,
		Role:         string(role),
		Phone:        req.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, s.db, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}

	s.log.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
	return toUserResponse(user, nil), nil
}

func (s *Service) Get(ctx context.Context, actor authorization.Actor, id string) (*domain.UserResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	if s.authz.Visible(actor, authorization.ObjectUser).Empty() {
		return nil, domain.ErrUserNotFound
	}

	userID, err := parseID(id, domain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	return s.loadUser(ctx, userID)
}

func (s *Service) Me(ctx context.Context, actor authorization.Actor) (*domain.UserResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	return s.loadUser(ctx, actor.UserID)
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListUserResponse{}, err
	}
	if s.authz.Visible(actor, authorization.ObjectUser).Empty() {
		return domain.ListUserResponse{Users: []domain.UserResponse{}}, nil
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Role:     strings.TrimSpace(req.Role),
		Username: strings.TrimSpace(req.Username),
		IsActive: req.IsActive,
	}, page)
	if err != nil {
		return domain.ListUserResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(u *domain.User) pagination.Cursor {
		return pagination.Cursor{ID: u.ID.Int64(), CreatedAt: u.CreatedAt}
	})

	resp := domain.ListUserResponse{PageInfo: pageInfo, Users: make([]domain.UserResponse, 0, len(items))}
	for _, item := range items {
		resp.Users = append(resp.Users, *toUserResponse(item, nil))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, actor authorization.Actor, id string, req domain.UpdateUserRequest) (*domain.UserResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectUser}, authorization.ActionWrite); err != nil {
		return nil, err
	}
	userID, err := parseID(id, domain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}

	req.Phone = normalizeText(req.Phone)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	var promotedToAdmin bool
	if req.Role != nil {
		role, err := authorization.ParseRole(*req.Role)
		if err != nil {
			return nil, validation.Field("role", "invalid_choice", "unknown role")
		}
		fields["role"] = string(role)
		promotedToAdmin = role == authorization.RoleAdmin
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.Password != nil {
		hash, err := password.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		fields["password_hash"] = hash
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) > 0 {
		fields["updated_at"] = s.clock.Now()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := s.repo.UpdateFields(ctx, tx, userID, fields); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrUserNotFound
				}
				return err
			}
		}
		// Admins are never scoped.
		if promotedToAdmin {
			return s.repo.DeleteProfileByUser(ctx, tx, userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.loadUser(ctx, userID)
}

func (s *Service) CreateProfile(ctx context.Context, actor authorization.Actor, req domain.ProfileRequest) (*domain.ProfileResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectPurchaserProfile}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	userID, err := parseID(req.UserID, domain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidUser
	}
	if user.Role == string(authorization.RoleAdmin) {
		return nil, domain.ErrAdminProfile
	}

	orgIDs, cityIDs, err := s.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	profile := &domain.PurchaserProfile{
		ID:              s.genID.Generate(),
		UserID:          userID,
		OrganizationIDs: orgIDs,
		CityIDs:         cityIDs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateProfile(ctx, s.db, profile); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrProfileExists
		}
		return nil, err
	}
	return toProfileResponse(profile), nil
}

func (s *Service) ReplaceProfile(ctx context.Context, actor authorization.Actor, id string, req domain.ProfileRequest) (*domain.ProfileResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authorization.Resource{Object: authorization.ObjectPurchaserProfile}, authorization.ActionWrite); err != nil {
		return nil, err
	}

	profileID, err := parseID(id, domain.ErrInvalidProfile)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.FindProfile(ctx, s.db, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	if req.UserID != "" && req.UserID != profile.UserID.String() {
		return nil, validation.Field("user_id", "immutable_field", "profile owner cannot change")
	}

	orgIDs, cityIDs, err := s.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}
	profile.OrganizationIDs = orgIDs
	profile.CityIDs = cityIDs
	profile.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateProfileScope(ctx, s.db, profile); err != nil {
		return nil, err
	}
	return toProfileResponse(profile), nil
}

func (s *Service) GetProfile(ctx context.Context, actor authorization.Actor, id string) (*domain.ProfileResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}
	if s.authz.Visible(actor, authorization.ObjectPurchaserProfile).Empty() {
		return nil, domain.ErrProfileNotFound
	}

	profileID, err := parseID(id, domain.ErrInvalidProfile)
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.FindProfile(ctx, s.db, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return toProfileResponse(profile), nil
}

func (s *Service) ListProfiles(ctx context.Context, actor authorization.Actor, req pagination.Pagination) (domain.ListProfileResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListProfileResponse{}, err
	}
	if s.authz.Visible(actor, authorization.ObjectPurchaserProfile).Empty() {
		return domain.ListProfileResponse{Profiles: []domain.ProfileResponse{}}, nil
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	items, err := s.repo.ListProfiles(ctx, s.db, page)
	if err != nil {
		return domain.ListProfileResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(p *domain.PurchaserProfile) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.Int64(), CreatedAt: p.CreatedAt}
	})

	resp := domain.ListProfileResponse{PageInfo: pageInfo, Profiles: make([]domain.ProfileResponse, 0, len(items))}
	for _, item := range items {
		resp.Profiles = append(resp.Profiles, *toProfileResponse(item))
	}
	return resp, nil
}

func (s *Service) ResolveActor(ctx context.Context, userID string) (authorization.Actor, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(userID))
	if err != nil || id == 0 {
		return authorization.Actor{}, authorization.ErrUnauthenticated
	}

	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return authorization.Actor{}, err
	}
	if user == nil || !user.IsActive {
		return authorization.Actor{}, authorization.ErrUnauthenticated
	}
	role, err := authorization.ParseRole(user.Role)
	if err != nil {
		s.log.Warn("user has unknown role", zap.String("user_id", user.ID.String()), zap.String("role", user.Role))
		return authorization.Actor{}, authorization.ErrUnauthenticated
	}

	actor := authorization.Actor{UserID: user.ID, Role: role}
	if role == authorization.RoleAdmin {
		return actor, nil
	}

	profile, err := s.repo.FindProfileByUser(ctx, s.db, user.ID)
	if err != nil {
		return authorization.Actor{}, err
	}
	if profile != nil {
		actor.Scope = authorization.NewScopeSet(toIDs(profile.OrganizationIDs), toIDs(profile.CityIDs))
	}
	return actor, nil
}

func (s *Service) Authenticate(ctx context.Context, username, secret string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(secret, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

func (s *Service) loadUser(ctx context.Context, userID snowflake.ID) (*domain.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	profile, err := s.repo.FindProfileByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user, profile), nil
}

// resolveScope parses the requested ids and checks that each one exists.
func (s *Service) resolveScope(ctx context.Context, req domain.ProfileRequest) (pq.Int64Array, pq.Int64Array, error) {
	orgIDs, err := parseIDs(req.OrganizationIDs, domain.ErrInvalidOrganization)
	if err != nil {
		return nil, nil, err
	}
	cityIDs, err := parseIDs(req.CityIDs, domain.ErrInvalidCity)
	if err != nil {
		return nil, nil, err
	}
	if err := s.ensureExist(ctx, "organizations", orgIDs, domain.ErrInvalidOrganization); err != nil {
		return nil, nil, err
	}
	if err := s.ensureExist(ctx, "cities", cityIDs, domain.ErrInvalidCity); err != nil {
		return nil, nil, err
	}
	return orgIDs, cityIDs, nil
}

func (s *Service) ensureExist(ctx context.Context, table string, ids pq.Int64Array, notFound error) error {
	if len(ids) == 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Table(table).Where("id IN ?", []int64(ids)).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return notFound
	}
	return nil
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

// parseIDs dedupes while preserving request order.
func parseIDs(raw []string, invalid error) (pq.Int64Array, error) {
	ids := make(pq.Int64Array, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))
	for _, item := range raw {
		id, err := parseID(item, invalid)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id.Int64()]; ok {
			continue
		}
		seen[id.Int64()] = struct{}{}
		ids = append(ids, id.Int64())
	}
	return ids, nil
}

func toIDs(values pq.Int64Array) []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(values))
	for _, v := range values {
		ids = append(ids, snowflake.ID(v))
	}
	return ids
}

func toStrings(values pq.Int64Array) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, snowflake.ID(v).String())
	}
	return out
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toUserResponse(user *domain.User, profile *domain.PurchaserProfile) *domain.UserResponse {
	resp := &domain.UserResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Role:      user.Role,
		Phone:     user.Phone,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if profile != nil {
		resp.Profile = toProfileResponse(profile)
	}
	return resp
}

func toProfileResponse(profile *domain.PurchaserProfile) *domain.ProfileResponse {
	return &domain.ProfileResponse{
		ID:              profile.ID.String(),
		UserID:          profile.UserID.String(),
		OrganizationIDs: toStrings(profile.OrganizationIDs),
		CityIDs:         toStrings(profile.CityIDs),
		CreatedAt:       profile.CreatedAt,
		UpdatedAt:       profile.UpdatedAt,
	}
}
