package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/staff-manager/internal/api/dto"
	"github.com/hugh/staff-manager/internal/departments"
)

type DepartmentHandler struct {
	departments *departments.Service
}

func NewDepartmentHandler(departmentService *departments.Service) *DepartmentHandler {
	return &DepartmentHandler{departments: departmentService}
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.departments.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list departments")
		return
	}

	writeResult(w, http.StatusOK, "Departments retrieved", dto.NewDepartmentResponses(rows))
}

func (h *DepartmentHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.departments.Tree(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to build department tree")
		return
	}

	writeResult(w, http.StatusOK, "Department tree retrieved", tree)
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDepartmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if details := req.Validate(); len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	department, err := h.departments.Create(r.Context(), departments.CreateInput{
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create department")
		return
	}

	writeResult(w, http.StatusCreated, "Department created", dto.NewDepartmentResponse(department))
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDepartmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if details := req.Validate(); len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	department, err := h.departments.Update(r.Context(), departments.UpdateInput{
		ID:       req.ID,
		Name:     req.Name,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to update department")
		return
	}

	writeResult(w, http.StatusOK, "Department updated", dto.NewDepartmentResponse(department))
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}

	if err := h.departments.Delete(r.Context(), uint(id)); err != nil {
		writeServiceError(w, r, err, "Failed to delete department")
		return
	}

	writeResult(w, http.StatusOK, "Department deleted", nil)
}
