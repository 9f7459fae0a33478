package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hugh/staff-manager/internal/api/dto"
	"github.com/hugh/staff-manager/internal/api/middleware"
	"github.com/hugh/staff-manager/internal/users"
)

type UserHandler struct {
	users *users.Service
}

func NewUserHandler(userService *users.Service) *UserHandler {
	return &UserHandler{users: userService}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.ParsePagination(r)

	details := make(map[string]string)
	departmentID := parseOptionalID(r, "departmentId", details)
	roleID := parseOptionalID(r, "roleId", details)
	if len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	page, err := h.users.FindAll(r.Context(), params.Page, params.Size, users.ListFilter{
		SearchQuery:  r.URL.Query().Get("searchQuery"),
		DepartmentID: departmentID,
		RoleID:       roleID,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to list users")
		return
	}

	writeResult(w, http.StatusOK, "Users retrieved", dto.PageResponse{
		CurrentPage:   page.Page,
		PageSize:      page.Size,
		TotalPages:    users.TotalPages(page.Total, page.Size),
		TotalElements: page.Total,
		Data:          dto.NewUserResponses(page.Users),
	})
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if details := req.Validate(); len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	user, err := h.users.Create(r.Context(), users.CreateInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		DepartmentID: req.DepartmentID,
		UserName:     req.UserName,
		Password:     req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create user")
		return
	}

	writeResult(w, http.StatusCreated, "User created", dto.NewUserResponse(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if details := req.Validate(); len(details) > 0 {
		writeValidationError(w, details)
		return
	}

	actor := users.Actor{
		UserID: middleware.GetUserID(r.Context()),
		Role:   middleware.GetUserRole(r.Context()),
	}
	user, err := h.users.Update(r.Context(), actor, users.UpdateInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		UserName:     req.UserName,
		Password:     req.Password,
		DepartmentID: req.DepartmentID,
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to update user")
		return
	}

	writeResult(w, http.StatusOK, "User updated", dto.NewUserResponse(user))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeValidationError(w, map[string]string{"email": "Email is required"})
		return
	}

	if err := h.users.DeleteByEmail(r.Context(), email); err != nil {
		writeServiceError(w, r, err, "Failed to delete user")
		return
	}

	writeResult(w, http.StatusOK, "User deleted", nil)
}

// Colleagues lists the users in the caller's department.
func (h *UserHandler) Colleagues(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Colleagues(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list colleagues")
		return
	}

	writeResult(w, http.StatusOK, "Colleagues retrieved", dto.NewUserResponses(list))
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load profile")
		return
	}

	writeResult(w, http.StatusOK, "Profile retrieved", dto.NewUserResponse(user))
}

func parseOptionalID(r *http.Request, name string, details map[string]string) uint {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		details[name] = "Must be a non-negative integer"
		return 0
	}
	return uint(id)
}
