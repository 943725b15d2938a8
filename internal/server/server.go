package server

import (
	"context"
	"net/http"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
	"tasktracker/internal/service"
	"tasktracker/internal/translator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskService interface {
	List(ctx context.Context, identity models.Identity, params service.ListParams) ([]models.Task, error)
	Get(ctx context.Context, identity models.Identity, id int64) (*models.Task, error)
	Create(ctx context.Context, identity models.Identity, req models.CreateTaskRequest) (*models.Task, error)
	Update(ctx context.Context, identity models.Identity, id int64, req models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, identity models.Identity, id int64) error
	BulkUpdate(ctx context.Context, identity models.Identity, req models.BulkUpdateRequest) (*models.BulkUpdateResult, error)
	BulkDelete(ctx context.Context, identity models.Identity, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error)
	Stats(ctx context.Context, identity models.Identity) (*models.TaskStats, error)
	Activity(ctx context.Context, identity models.Identity) ([]models.ActivityEntry, error)
}

type CategoryService interface {
	List(ctx context.Context, identity models.Identity) ([]models.CategorySummary, error)
	Get(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error)
	Update(ctx context.Context, id int64, req models.UpdateCategoryRequest) (*models.Category, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type AccountService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*service.Session, error)
	Login(ctx context.Context, req models.LoginRequest) (*service.Session, error)
	Profile(ctx context.Context, identity models.Identity) (*models.User, error)
	UpdateProfile(ctx context.Context, identity models.Identity, req models.UpdateUserRequest) (*service.Session, error)
	DeleteAccount(ctx context.Context, identity models.Identity) error
}

// IdentityResolver turns a bearer credential into the caller's identity.
type IdentityResolver interface {
	Verify(token string) (models.Identity, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Tasks      TaskService
	Categories CategoryService
	Accounts   AccountService
	Identities IdentityResolver
	Health     HealthChecker
	Translator *translator.Translator
	Logger     *zap.Logger
}

type TaskAPI struct {
	httpSrv    *http.Server
	cfg        *Config
	tasks      TaskService
	categories CategoryService
	accounts   AccountService
	identities IdentityResolver
	health     HealthChecker
	tr         *translator.Translator
	logger     *zap.Logger
}

// NewTaskAPI wires the HTTP surface. It returns nil when a required service is missing.
func NewTaskAPI(cfg *Config, deps Deps) *TaskAPI {
	if deps.Tasks == nil || deps.Categories == nil || deps.Accounts == nil || deps.Identities == nil {
		return nil
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Translator == nil {
		tr, err := translator.New(cfg.DefaultLang)
		if err != nil {
			deps.Logger.Error("не удалось инициализировать переводчик", zap.Error(err))
			return nil
		}
		deps.Translator = tr
	}

	api := &TaskAPI{
		httpSrv: &http.Server{
			Addr:              cfg.ListenAddr(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		cfg:        cfg,
		tasks:      deps.Tasks,
		categories: deps.Categories,
		accounts:   deps.Accounts,
		identities: deps.Identities,
		health:     deps.Health,
		tr:         deps.Translator,
		logger:     deps.Logger,
	}
	api.configRoutes()
	return api
}

func (api *TaskAPI) Start() error {
	if api.httpSrv == nil {
		return errors.ErrInternalServer
	}
	err := api.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (api *TaskAPI) Shutdown(ctx context.Context) error {
	return api.httpSrv.Shutdown(ctx)
}

func (api *TaskAPI) Handler() http.Handler {
	return api.httpSrv.Handler
}

func (api *TaskAPI) configRoutes() {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(api.logger),
		Language(api.tr.DefaultLang()),
		GzipRequestDecompress(api.tr),
		GzipResponseCompress(api.cfg.GzipMinSize),
	)

	router.NoMethod(func(ctx *gin.Context) {
		ctx.JSON(http.StatusMethodNotAllowed, gin.H{"error": api.message(ctx, "methodNotAllowed")})
	})
	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": api.message(ctx, "routeNotFound")})
	})

	root := router.Group("/api")
	root.GET("/health", api.healthCheck)

	auth := root.Group("/auth")
	{
		auth.POST("/register", api.register)
		auth.POST("/login", api.login)
		auth.POST("/logout", api.logout)
	}

	users := root.Group("/users", api.Authenticate())
	{
		users.GET("/me", api.getProfile)
		users.PUT("/me", api.updateProfile)
		users.DELETE("/me", api.deleteProfile)
	}

	tasks := root.Group("/tasks", api.Authenticate())
	{
		tasks.GET("", api.getTasks)
		tasks.POST("", api.createTask)
		tasks.GET("/stats", api.getStats)
		tasks.GET("/activity", api.getActivity)
		tasks.PATCH("/bulk", api.bulkUpdateTasks)
		tasks.DELETE("/bulk", api.bulkDeleteTasks)
		tasks.GET("/:taskID", api.getTaskByID)
		tasks.PUT("/:taskID", api.updateTask)
		tasks.PATCH("/:taskID", api.updateTask)
		tasks.DELETE("/:taskID", api.deleteTask)
	}

	categories := root.Group("/categories", api.Authenticate())
	{
		categories.GET("", api.getCategories)
		categories.POST("", api.createCategory)
		categories.GET("/:categoryID", api.getCategory)
		categories.PUT("/:categoryID", api.updateCategory)
		categories.PATCH("/:categoryID", api.updateCategory)
		categories.DELETE("/:categoryID", api.deleteCategory)
	}

	api.httpSrv.Handler = router
}
