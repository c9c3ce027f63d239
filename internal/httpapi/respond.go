package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

// pagination describes the page window of a list response.
type pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// listResponse wraps a page of results with its pagination window.
type listResponse struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data"`
	Pagination pagination `json:"pagination"`
}

func writeList(c *gin.Context, p postgres.ListParams, total int64, data any) {
	page, pageSize := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > postgres.MaxPageSize {
		pageSize = postgres.DefaultPageSize
	}
	c.JSON(http.StatusOK, listResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// writeData wraps a single resource in the success envelope.
func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

var notFoundErrors = []error{
	postgres.ErrUserNotFound,
	postgres.ErrRaceNotFound,
	postgres.ErrArchetypeNotFound,
	postgres.ErrItemNotFound,
	postgres.ErrSkillNotFound,
	postgres.ErrTagNotFound,
	postgres.ErrImageNotFound,
	postgres.ErrCharacterNotFound,
	postgres.ErrNotAttached,
	postgres.ErrMissingReference,
}

var conflictErrors = []error{
	postgres.ErrUserExists,
	postgres.ErrUserInactive,
	postgres.ErrUserInUse,
	postgres.ErrRaceExists,
	postgres.ErrRaceInUse,
	postgres.ErrArchetypeExists,
	postgres.ErrArchetypeInUse,
	postgres.ErrItemExists,
	postgres.ErrItemInUse,
	postgres.ErrSkillExists,
	postgres.ErrSkillInUse,
	postgres.ErrTagExists,
	postgres.ErrTagInUse,
	postgres.ErrImageInUse,
	postgres.ErrCharacterExists,
	postgres.ErrAlreadyAttached,
}

var badRequestErrors = []error{
	postgres.ErrInvalidRole,
	postgres.ErrInvalidKind,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorStatus maps a repository error onto its HTTP status. Unknown
// errors map to 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, postgres.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound
	case matchesAny(err, conflictErrors):
		return http.StatusConflict
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Internal errors are
// logged and reported with the fallback message instead of the raw error
// chain.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error(fallback,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		writeError(c, status, fallback, errors.New("internal error"))
		return
	}
	writeError(c, status, err.Error(), err)
}

// pathID parses the named path parameter as a positive integer ID. On
// failure it writes a 400 and reports ok=false.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		writeError(c, http.StatusBadRequest, "invalid "+name, errInvalidID)
		return 0, false
	}
	return id, true
}

var errInvalidID = errors.New("identifier must be a positive integer")

// listParams reads the shared pagination and search query parameters.
// Values out of range fall back to defaults rather than erroring.
func listParams(c *gin.Context) postgres.ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(postgres.DefaultPageSize)))
	return postgres.ListParams{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Desc:     c.Query("order") == "desc",
	}
}
