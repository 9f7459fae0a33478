package departments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hugh/staff-manager/internal/apperror"
	"github.com/hugh/staff-manager/internal/database"
	"github.com/hugh/staff-manager/internal/database/models"
	"github.com/hugh/staff-manager/internal/events"
	"gorm.io/gorm"
)

var (
	ErrDepartmentNotFound = apperror.New(apperror.CodeNotFound, "department not found")
	ErrParentNotFound     = apperror.New(apperror.CodeNotFound, "parent department not found")
	ErrDepartmentHasUsers = apperror.New(apperror.CodeConflict, "department has assigned users and cannot be deleted")
	ErrDepartmentCycle    = apperror.New(apperror.CodeConflict, "department cannot be moved below itself")
	ErrInvalidName        = apperror.New(apperror.CodeValidation, "name length must be in range 1..200")
)

type Service struct {
	db     *gorm.DB
	events events.Publisher
	logger *slog.Logger
}

func NewService(db *gorm.DB, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{db: db, events: publisher, logger: logger}
}

type CreateInput struct {
	Name     string
	ParentID uint // 0 creates a root
}

type UpdateInput struct {
	ID       uint
	Name     string
	ParentID uint
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Department, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	department := models.Department{Name: name}
	if input.ParentID != 0 {
		if err := s.ensureExists(ctx, input.ParentID, ErrParentNotFound); err != nil {
			return nil, err
		}
		parentID := input.ParentID
		department.ParentID = &parentID
	}

	if err := s.db.WithContext(ctx).Create(&department).Error; err != nil {
		return nil, mapDatabaseError(err)
	}

	s.publish(ctx, events.New(events.DepartmentCreated, department.ID, eventAttributes(department)))
	return &department, nil
}

// List returns every department ordered by id.
func (s *Service) List(ctx context.Context) ([]models.Department, error) {
	var rows []models.Department
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	return rows, nil
}

func (s *Service) Tree(ctx context.Context) ([]*Node, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(rows), nil
}

func (s *Service) Update(ctx context.Context, input UpdateInput) (*models.Department, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	var department models.Department
	if err := s.db.WithContext(ctx).First(&department, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("loading department: %w", err)
	}

	var parentID *uint
	if input.ParentID != 0 {
		if input.ParentID == department.ID {
			return nil, ErrDepartmentCycle
		}
		if err := s.ensureExists(ctx, input.ParentID, ErrParentNotFound); err != nil {
			return nil, err
		}
		cycle, err := s.wouldCreateCycle(ctx, department.ID, input.ParentID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, ErrDepartmentCycle
		}
		p := input.ParentID
		parentID = &p
	}

	if err := s.db.WithContext(ctx).Model(&department).Updates(map[string]interface{}{
		"name":      name,
		"parent_id": parentID,
	}).Error; err != nil {
		return nil, mapDatabaseError(err)
	}
	department.Name = name
	department.ParentID = parentID

	s.publish(ctx, events.New(events.DepartmentUpdated, department.ID, eventAttributes(department)))
	return &department, nil
}

// Delete removes a department that has no users. Its children move up to its parent.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var department models.Department
		if err := tx.First(&department, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDepartmentNotFound
			}
			return fmt.Errorf("loading department: %w", err)
		}

		var users int64
		if err := tx.Model(&models.User{}).Where("department_id = ?", id).Count(&users).Error; err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		if users > 0 {
			return ErrDepartmentHasUsers
		}

		if err := tx.Model(&models.Department{}).
			Where("parent_id = ?", id).
			Update("parent_id", department.ParentID).Error; err != nil {
			return mapDatabaseError(err)
		}

		if err := tx.Delete(&models.Department{}, id).Error; err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrDepartmentHasUsers
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.New(events.DepartmentDeleted, id, nil))
	return nil
}

// SubtreeIDs returns id plus all of its descendants. An unknown id yields just itself.
func (s *Service) SubtreeIDs(ctx context.Context, id uint) ([]uint, error) {
	var rows []models.Department
	if err := s.db.WithContext(ctx).Select("id", "parent_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading department links: %w", err)
	}
	return Descendants(rows, id), nil
}

// Exists is used by the user service to validate department assignments.
func (s *Service) Exists(ctx context.Context, id uint) (bool, error) {
	err := s.ensureExists(ctx, id, ErrDepartmentNotFound)
	if errors.Is(err, ErrDepartmentNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) ensureExists(ctx context.Context, id uint, notFound error) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Department{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("checking department existence: %w", err)
	}
	if count == 0 {
		return notFound
	}
	return nil
}

// wouldCreateCycle walks up from newParentID looking for departmentID.
func (s *Service) wouldCreateCycle(ctx context.Context, departmentID, newParentID uint) (bool, error) {
	var rows []models.Department
	if err := s.db.WithContext(ctx).Select("id", "parent_id").Find(&rows).Error; err != nil {
		return false, fmt.Errorf("loading department links: %w", err)
	}

	for _, id := range Descendants(rows, departmentID) {
		if id == newParentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "type", event.Type, "id", event.EntityID, "error", err)
	}
}

func eventAttributes(d models.Department) map[string]interface{} {
	return map[string]interface{}{
		"name":     d.Name,
		"parentId": d.ParentIDOrZero(),
	}
}

func normalizeName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < 1 || n > 200 {
		return "", ErrInvalidName
	}
	return name, nil
}

func mapDatabaseError(err error) error {
	if database.IsForeignKeyViolation(err) {
		return ErrParentNotFound
	}
	return err
}
