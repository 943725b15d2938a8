package service

import (
	"strconv"
	"strings"

	"tasktracker/internal/domain/models"
)

// ListParams are the raw list query parameters exactly as the client sent them.
type ListParams struct {
	Completed  string `form:"completed"`
	Priority   string `form:"priority"`
	CategoryID string `form:"categoryId"`
	Search     string `form:"search"`
	SortBy     string `form:"sortBy"`
	Order      string `form:"order"`
}

var sortFields = map[string]models.SortField{
	"createdAt": models.SortByCreatedAt,
	"dueDate":   models.SortByDueDate,
	"priority":  models.SortByPriority,
	"title":     models.SortByTitle,
}

// BuildTaskQuery turns untrusted parameters into a query scoped to identity.
// It never fails: unusable values fall back to permissive defaults.
//
//   - completed: true/false/1/0, anything else is dropped
//   - priority: upper-cased and passed through as is, so an unknown value
//     matches nothing and the list comes back empty
//   - categoryId: positive integers only, anything else is dropped
//   - sortBy: createdAt, dueDate, priority or title, default createdAt
//   - order: asc or desc, default desc
func BuildTaskQuery(params ListParams, identity models.Identity) models.TaskQuery {
	q := models.OwnedBy(identity.UserID)

	switch strings.ToLower(strings.TrimSpace(params.Completed)) {
	case "true", "1":
		q = q.WithCompleted(true)
	case "false", "0":
		q = q.WithCompleted(false)
	}

	if raw := strings.TrimSpace(params.Priority); raw != "" {
		priority := models.NormalizePriority(raw)
		q.Priority = &priority
	}

	if id, err := strconv.ParseInt(strings.TrimSpace(params.CategoryID), 10, 64); err == nil && id > 0 {
		q = q.WithCategory(id)
	}

	q.Search = strings.TrimSpace(params.Search)

	if field, ok := sortFields[strings.TrimSpace(params.SortBy)]; ok {
		q.SortBy = field
	}
	if strings.ToLower(strings.TrimSpace(params.Order)) == string(models.OrderAsc) {
		q.Order = models.OrderAsc
	}

	// Re-asserted last so nothing above can widen the scope.
	q.OwnerID = identity.UserID
	return q
}
