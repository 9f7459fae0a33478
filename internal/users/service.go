package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/hugh/staff-manager/internal/apperror"
	"github.com/hugh/staff-manager/internal/auth"
	"github.com/hugh/staff-manager/internal/database"
	"github.com/hugh/staff-manager/internal/database/models"
	"github.com/hugh/staff-manager/internal/departments"
	"github.com/hugh/staff-manager/internal/events"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound   = apperror.New(apperror.CodeNotFound, "user not found")
	ErrDuplicateEmail = apperror.New(apperror.CodeConflict, "user with this email already exists")
	ErrForbidden      = apperror.New(apperror.CodeForbidden, "you may only update your own account")
)

const (
	DefaultPageSize = 4
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*size inside an int32 offset.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// DepartmentDirectory is the part of the department service users depend on.
type DepartmentDirectory interface {
	Exists(ctx context.Context, id uint) (bool, error)
	SubtreeIDs(ctx context.Context, id uint) ([]uint, error)
}

type Service struct {
	db          *gorm.DB
	departments DepartmentDirectory
	events      events.Publisher
	logger      *slog.Logger
}

func NewService(db *gorm.DB, departments DepartmentDirectory, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{db: db, departments: departments, events: publisher, logger: logger}
}

type CreateInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	DepartmentID uint // 0 means no department
	UserName     string
	Password     string
}

// UpdateInput identifies the user by Email. Empty strings keep the stored value;
// a nil DepartmentID leaves the department alone and 0 clears it.
type UpdateInput struct {
	Email        string
	FirstName    string
	LastName     string
	Phone        string
	UserName     string
	Password     string
	DepartmentID *uint
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID uint
	Role   string
}

type ListFilter struct {
	SearchQuery  string
	DepartmentID uint // subtree-inclusive; 0 disables
	RoleID       uint // 0 disables
}

type Page struct {
	Users []models.User
	Total int64
	Page  int
	Size  int
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	email := auth.NormalizeEmail(input.Email)

	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	departmentID, err := s.resolveDepartment(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role, err := s.findOrCreateRole(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: hash,
		UserName:     strings.TrimSpace(input.UserName),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		RoleID:       &role.ID,
		DepartmentID: departmentID,
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&user).Error; err != nil {
		return nil, mapDatabaseError(err)
	}

	s.publish(ctx, events.New(events.UserCreated, user.ID, map[string]interface{}{"email": user.Email}))
	return s.Profile(ctx, user.ID)
}

func (s *Service) Update(ctx context.Context, actor Actor, input UpdateInput) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", auth.NormalizeEmail(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if actor.Role != models.RoleAdmin && actor.UserID != user.ID {
		return nil, ErrForbidden
	}

	setIfPresent(&user.FirstName, input.FirstName)
	setIfPresent(&user.LastName, input.LastName)
	setIfPresent(&user.Phone, input.Phone)
	setIfPresent(&user.UserName, input.UserName)

	// Blank keeps the stored hash; otherwise the password is hashed as sent.
	if strings.TrimSpace(input.Password) != "" {
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = hash
	}

	if input.DepartmentID != nil {
		departmentID, err := s.resolveDepartment(ctx, *input.DepartmentID)
		if err != nil {
			return nil, err
		}
		user.DepartmentID = departmentID
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&user).Error; err != nil {
		return nil, mapDatabaseError(err)
	}

	s.publish(ctx, events.New(events.UserUpdated, user.ID, map[string]interface{}{"email": user.Email}))
	return s.Profile(ctx, user.ID)
}

func (s *Service) DeleteByEmail(ctx context.Context, email string) error {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", auth.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("loading user: %w", err)
	}

	result := s.db.WithContext(ctx).Delete(&models.User{}, user.ID)
	if result.Error != nil {
		return fmt.Errorf("deleting user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.publish(ctx, events.New(events.UserDeleted, user.ID, map[string]interface{}{"email": user.Email}))
	return nil
}

// FindAll pages through users matching filter. page is 1-indexed.
func (s *Service) FindAll(ctx context.Context, page, size int, filter ListFilter) (*Page, error) {
	page, size = NormalizePage(page, size)

	var departmentIDs []uint
	if filter.DepartmentID != 0 {
		ids, err := s.departments.SubtreeIDs(ctx, filter.DepartmentID)
		if err != nil {
			return nil, err
		}
		departmentIDs = ids
	}

	var total int64
	if err := s.filtered(ctx, filter, departmentIDs).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	var list []models.User
	if err := s.filtered(ctx, filter, departmentIDs).
		Select("users.*").
		Preload("Role").
		Preload("Department.Parent").
		Order("users.id ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return &Page{Users: list, Total: total, Page: page, Size: size}, nil
}

// filtered builds a fresh query each call so Count and Find never share statement state.
func (s *Service) filtered(ctx context.Context, filter ListFilter, departmentIDs []uint) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("LEFT JOIN roles ON roles.id = users.role_id").
		Joins("LEFT JOIN departments ON departments.id = users.department_id")

	if q := strings.ToLower(strings.TrimSpace(filter.SearchQuery)); q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"(LOWER(users.email) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? "+
				"OR LOWER(users.user_name) LIKE ? OR LOWER(roles.name) LIKE ? OR LOWER(departments.name) LIKE ?)",
			like, like, like, like, like, like,
		)
	}
	if len(departmentIDs) > 0 {
		query = query.Where("users.department_id IN ?", departmentIDs)
	}
	if filter.RoleID != 0 {
		query = query.Where("users.role_id = ?", filter.RoleID)
	}
	return query
}

func (s *Service) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Preload("Department.Parent").
		First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &user, nil
}

// Colleagues lists the users sharing the caller's department, the caller included.
func (s *Service) Colleagues(ctx context.Context, userID uint) ([]models.User, error) {
	me, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if me.DepartmentID == nil {
		return []models.User{}, nil
	}

	var list []models.User
	if err := s.db.WithContext(ctx).
		Preload("Role").
		Preload("Department.Parent").
		Where("department_id = ?", *me.DepartmentID).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("listing colleagues: %w", err)
	}
	return list, nil
}

// EnsureAdmin creates an ADMIN account for email unless a user with that email exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = auth.NormalizeEmail(email)
	taken, err := s.emailTaken(ctx, email)
	if err != nil || taken {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}
	role, err := s.findOrCreateRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}

	admin := models.User{
		Email:        email,
		PasswordHash: hash,
		UserName:     strings.SplitN(email, "@", 2)[0],
		RoleID:       &role.ID,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&admin).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating admin: %w", err)
	}

	s.logger.Info("bootstrap admin created", "email", email)
	return true, nil
}

// NormalizePage applies the defaults and bounds to 1-indexed paging parameters.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// TotalPages is ceil(total / size).
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return count > 0, nil
}

func (s *Service) resolveDepartment(ctx context.Context, id uint) (*uint, error) {
	if id == 0 {
		return nil, nil
	}
	ok, err := s.departments.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, departments.ErrDepartmentNotFound
	}
	return &id, nil
}

func (s *Service) findOrCreateRole(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
		return nil, fmt.Errorf("resolving role %s: %w", name, err)
	}
	return &role, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "type", event.Type, "id", event.EntityID, "error", err)
	}
}

func setIfPresent(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func mapDatabaseError(err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return ErrDuplicateEmail
	case database.IsForeignKeyViolation(err):
		return departments.ErrDepartmentNotFound
	}
	return err
}
