package server

import (
	"net/http"

	"tasktracker/internal/domain/models"

	"github.com/gin-gonic/gin"
)

func (api *TaskAPI) getCategories(ctx *gin.Context) {
	categories, err := api.categories.List(ctx.Request.Context(), currentIdentity(ctx))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"categories": categories, "count": len(categories)})
}

func (api *TaskAPI) getCategory(ctx *gin.Context) {
	category, err := api.categories.Get(ctx.Request.Context(), pathID(ctx, "categoryID"))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"category": category})
}

func (api *TaskAPI) createCategory(ctx *gin.Context) {
	var req models.CreateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validate.Struct(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	category, err := api.categories.Create(ctx.Request.Context(), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"category": category})
}

func (api *TaskAPI) updateCategory(ctx *gin.Context) {
	var req models.UpdateCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": api.message(ctx, "badRequest")})
		return
	}
	if err := validateUpdateCategory(req); err != nil {
		api.respondValidation(ctx, err)
		return
	}

	category, err := api.categories.Update(ctx.Request.Context(), pathID(ctx, "categoryID"), req)
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"category": category})
}

func (api *TaskAPI) deleteCategory(ctx *gin.Context) {
	detached, err := api.categories.Delete(ctx.Request.Context(), pathID(ctx, "categoryID"))
	if err != nil {
		api.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":       api.message(ctx, "categoryDeleted"),
		"detachedTasks": detached,
	})
}
