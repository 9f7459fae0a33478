package dto

import (
	"strings"

	"github.com/hugh/staff-manager/internal/database/models"
)

type CreateDepartmentRequest struct {
	Name     string `json:"name"`
	ParentID uint   `json:"parentId"`
}

func (r CreateDepartmentRequest) Validate() map[string]string {
	return validateDepartmentName(r.Name)
}

type UpdateDepartmentRequest struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ParentID uint   `json:"parentId"`
}

func (r UpdateDepartmentRequest) Validate() map[string]string {
	errors := validateDepartmentName(r.Name)
	if r.ID == 0 {
		errors["id"] = "Department id is required"
	}
	return errors
}

func validateDepartmentName(name string) map[string]string {
	errors := make(map[string]string)
	name = strings.TrimSpace(name)
	if name == "" {
		errors["name"] = "Name is required"
	} else if len([]rune(name)) > 200 {
		errors["name"] = "Name must be at most 200 characters"
	}
	return errors
}

type DepartmentResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ParentID uint   `json:"parentId"`
}

func NewDepartmentResponse(d *models.Department) DepartmentResponse {
	return DepartmentResponse{ID: d.ID, Name: d.Name, ParentID: d.ParentIDOrZero()}
}

func NewDepartmentResponses(list []models.Department) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(list))
	for i := range list {
		out = append(out, NewDepartmentResponse(&list[i]))
	}
	return out
}
