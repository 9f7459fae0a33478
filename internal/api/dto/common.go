package dto

import (
	"net/http"
	"strconv"
)

// APIResponse wraps every JSON body the API returns.
type APIResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Result  interface{}       `json:"result"`
	Details map[string]string `json:"details,omitempty"`
}

type PageResponse struct {
	CurrentPage   int         `json:"currentPage"`
	PageSize      int         `json:"pageSize"`
	TotalPages    int         `json:"totalPages"`
	TotalElements int64       `json:"totalElements"`
	Data          interface{} `json:"data"`
}

type PaginationParams struct {
	Page int
	Size int
}

// ParsePagination reads ?page and ?size. Bounds are applied by the service.
func ParsePagination(r *http.Request) PaginationParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return PaginationParams{Page: page, Size: size}
}
