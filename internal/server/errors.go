package server

import (
	"net/http"

	"tasktracker/internal/domain/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByKind = map[errors.Kind]int{
	errors.KindValidation:      http.StatusBadRequest,
	errors.KindUnauthenticated: http.StatusUnauthorized,
	errors.KindNotFound:        http.StatusNotFound,
	errors.KindForbidden:       http.StatusForbidden,
	errors.KindConflict:        http.StatusConflict,
	errors.KindStorage:         http.StatusInternalServerError,
}

var fallbackMessageByKind = map[errors.Kind]string{
	errors.KindValidation:      "validationFailed",
	errors.KindUnauthenticated: "unauthorized",
	errors.KindNotFound:        "notFound",
	errors.KindForbidden:       "forbidden",
	errors.KindConflict:        "conflict",
	errors.KindStorage:         "internalServer",
}

var messageIDs = []struct {
	err error
	id  string
}{
	{errors.ErrBatchEmpty, "batchEmpty"},
	{errors.ErrBatchTooLarge, "batchTooLarge"},
	{errors.ErrInvalidTaskID, "invalidTaskId"},
	{errors.ErrEmptyUpdate, "emptyUpdate"},
	{errors.ErrInvalidDueDate, "invalidDueDate"},
	{errors.ErrInvalidPriority, "invalidPriority"},
	{errors.ErrInvalidTitle, "invalidTitle"},
	{errors.ErrInvalidDescription, "invalidDescription"},
	{errors.ErrInvalidCategory, "invalidCategory"},
	{errors.ErrInvalidName, "invalidName"},
	{errors.ErrInvalidColor, "invalidColor"},
	{errors.ErrInvalidUsername, "invalidUsername"},
	{errors.ErrInvalidEmail, "invalidEmail"},
	{errors.ErrInvalidPassword, "invalidPassword"},
	{errors.ErrBadRequest, "badRequest"},
	{errors.ErrInvalidCredentials, "invalidCredentials"},
	{errors.ErrTaskNotFound, "taskNotFound"},
	{errors.ErrCategoryNotFound, "categoryNotFound"},
	{errors.ErrUserNotFound, "userNotFound"},
	{errors.ErrForbidden, "bulkForbidden"},
	{errors.ErrUserAlreadyExists, "userAlreadyExists"},
	{errors.ErrCategoryExists, "categoryExists"},
}

// respondError writes the status and localized message for err. Storage
// failures are logged here and reach the client only as an opaque 500.
func (api *TaskAPI) respondError(ctx *gin.Context, err error) {
	kind := errors.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if kind == errors.KindStorage {
		_ = ctx.Error(err)
		api.logger.Error("ошибка обработки запроса",
			zap.String("request_id", ctx.GetString(requestIDKey)),
			zap.String("path", ctx.FullPath()),
			zap.Error(err))
		ctx.JSON(status, gin.H{"error": api.message(ctx, "internalServer")})
		return
	}
	ctx.JSON(status, gin.H{"error": api.message(ctx, messageID(err, kind))})
}

// respondValidation reports a request that failed schema validation, with the
// validator's own text as details.
func (api *TaskAPI) respondValidation(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   api.message(ctx, messageID(validationErrorToErrorResponse(err), errors.KindValidation)),
		"details": err.Error(),
	})
}

func (api *TaskAPI) message(ctx *gin.Context, id string) string {
	return api.tr.Message(langFrom(ctx), id)
}

func messageID(err error, kind errors.Kind) string {
	for _, m := range messageIDs {
		if errors.Is(err, m.err) {
			return m.id
		}
	}
	return fallbackMessageByKind[kind]
}
