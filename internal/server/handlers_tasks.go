package server

import (
	"net/http"
	"strconv"

	"tasktracker/internal/domain/models"
	"tasktracker/internal/service"

	"github.com/gin-gonic/gin"
)

// pathID returns 0 for anything that is not a positive integer; services
// report such ids as not found.
func pathID(ctx *gin.Context, name string) int64 {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func (api *TaskAPI) getTasks(ctx *gin.Context) {
	var params service.ListParams
	// Malformed filters are ignored rather than rejected.
	_ = ctx.ShouldBindQuery(&params)

	tasks, err := api.tasks.List(ctx.Request.Context(), currentIdentity(ctx), params)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func (api *TaskAPI) getTaskByID(ctx *gin.Context) {
	task, err := api.tasks.Get(ctx.Request.Context(), currentIdentity(ctx), pathID(ctx, "taskID"))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task": task})
}

func (api *TaskAPI) createTask(ctx *gin.Context) {
	var req models.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validateCreateTask(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	task, err := api.tasks.Create(ctx.Request.Context(), currentIdentity(ctx), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"task": task})
}

func (api *TaskAPI) updateTask(ctx *gin.Context) {
	var req models.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validateUpdateTask(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	task, err := api.tasks.Update(ctx.Request.Context(), currentIdentity(ctx), pathID(ctx, "taskID"), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task": task})
}

func (api *TaskAPI) deleteTask(ctx *gin.Context) {
	if err := api.tasks.Delete(ctx.Request.Context(), currentIdentity(ctx), pathID(ctx, "taskID")); err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": api.message(ctx, "taskDeleted")})
}

func (api *TaskAPI) bulkUpdateTasks(ctx *gin.Context) {
	var req models.BulkUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validate.Struct(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}
	if err := validateBulkUpdates(req.Updates); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	result, err := api.tasks.BulkUpdate(ctx.Request.Context(), currentIdentity(ctx), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":      api.message(ctx, "tasksUpdated"),
		"updatedCount": result.UpdatedCount,
		"tasks":        result.Tasks,
	})
}

func (api *TaskAPI) bulkDeleteTasks(ctx *gin.Context) {
	var req models.BulkDeleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validate.Struct(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	result, err := api.tasks.BulkDelete(ctx.Request.Context(), currentIdentity(ctx), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":      api.message(ctx, "tasksDeleted"),
		"deletedCount": result.DeletedCount,
		"deletedIds":   result.DeletedIDs,
		"deletedTasks": result.DeletedTasks,
	})
}

func (api *TaskAPI) getStats(ctx *gin.Context) {
	stats, err := api.tasks.Stats(ctx.Request.Context(), currentIdentity(ctx))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (api *TaskAPI) getActivity(ctx *gin.Context) {
	activity, err := api.tasks.Activity(ctx.Request.Context(), currentIdentity(ctx))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"activity": activity, "count": len(activity)})
}
