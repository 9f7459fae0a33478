package dto

import (
	"strings"

	"github.com/hugh/staff-manager/internal/api/validation"
	"github.com/hugh/staff-manager/internal/database/models"
)

type CreateUserRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DepartmentID uint   `json:"departmentId"`
	UserName     string `json:"userName"`
	Password     string `json:"password"`
}

func (r CreateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	email := strings.TrimSpace(r.Email)
	if email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(email) {
		errors["email"] = "Invalid email format"
	}
	if !validation.IsValidName(r.UserName) {
		errors["userName"] = "User name is required"
	}
	if msg := validation.ValidatePassword(r.Password); msg != "" {
		errors["password"] = msg
	}
	validateOptional(errors, r.FirstName, r.LastName, r.Phone)

	return errors
}

// UpdateUserRequest is keyed by email. Blank fields keep their stored value; a missing
// departmentId leaves the department unchanged and 0 clears it.
type UpdateUserRequest struct {
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	UserName     string `json:"userName"`
	Password     string `json:"password"`
	DepartmentID *uint  `json:"departmentId"`
}

func (r UpdateUserRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	}
	if strings.TrimSpace(r.Password) != "" {
		if msg := validation.ValidatePassword(r.Password); msg != "" {
			errors["password"] = msg
		}
	}
	if strings.TrimSpace(r.UserName) != "" && !validation.IsValidName(r.UserName) {
		errors["userName"] = "User name is too long"
	}
	validateOptional(errors, r.FirstName, r.LastName, r.Phone)

	return errors
}

func validateOptional(errors map[string]string, firstName, lastName, phone string) {
	if strings.TrimSpace(firstName) != "" && !validation.IsValidName(firstName) {
		errors["firstName"] = "First name is too long"
	}
	if strings.TrimSpace(lastName) != "" && !validation.IsValidName(lastName) {
		errors["lastName"] = "Last name is too long"
	}
	if phone = strings.TrimSpace(phone); phone != "" && !validation.IsValidPhone(phone) {
		errors["phone"] = "Invalid phone number"
	}
}

type UserResponse struct {
	ID               uint   `json:"id"`
	Email            string `json:"email"`
	UserName         string `json:"userName"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Phone            string `json:"phone"`
	Role             string `json:"role"`
	DepartmentID     uint   `json:"departmentId"`
	DepartmentName   string `json:"departmentName"`
	ParentDepartment string `json:"parentDepartment"`
}

func NewUserResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		UserName:  validation.SanitizeString(u.UserName),
		FirstName: validation.SanitizeString(u.FirstName),
		LastName:  validation.SanitizeString(u.LastName),
		Phone:     u.Phone,
		Role:      u.RoleName(),
	}
	if u.Department != nil {
		resp.DepartmentID = u.Department.ID
		resp.DepartmentName = u.Department.Name
		if u.Department.Parent != nil {
			resp.ParentDepartment = u.Department.Parent.Name
		}
	}
	return resp
}

func NewUserResponses(list []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, NewUserResponse(&list[i]))
	}
	return out
}
