package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tasktracker/internal/auth"
	"tasktracker/internal/domain/models"
	"tasktracker/internal/service"
	"tasktracker/repository/inmemory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingHealth struct{}

func (failingHealth) Ping(context.Context) error { return assert.AnError }

type testAPI struct {
	api     *TaskAPI
	handler http.Handler
}

func newTestAPI(t *testing.T, health HealthChecker) *testAPI {
	t.Helper()
	store := inmemory.NewStorage()
	tokens := auth.NewTokens("test-secret", time.Hour)
	cfg := DefaultConfig()
	cfg.Storage = StorageMemory
	cfg.JWTSecret = "test-secret"

	if health == nil {
		health = store
	}
	api := NewTaskAPI(cfg, Deps{
		Tasks:      service.NewTaskService(store, store),
		Categories: service.NewCategoryService(store, store),
		Accounts:   service.NewAccountService(store, auth.NewBcryptHasher(bcrypt.MinCost), tokens),
		Identities: tokens,
		Health:     health,
		Logger:     zap.NewNop(),
	})
	require.NotNil(t, api)
	return &testAPI{api: api, handler: api.Handler()}
}

func (ta *testAPI) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Language", "en")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ta.handler.ServeHTTP(w, req)
	return w
}

func (ta *testAPI) register(t *testing.T, username string) string {
	t.Helper()
	w := ta.do(t, http.MethodPost, "/api/auth/register", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func (ta *testAPI) createTask(t *testing.T, token string, body gin.H) int64 {
	t.Helper()
	w := ta.do(t, http.MethodPost, "/api/tasks", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode(t, w)["task"].(map[string]any)
	return int64(task["id"].(float64))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestNewTaskAPI(t *testing.T) {
	store := inmemory.NewStorage()
	tokens := auth.NewTokens("secret", time.Hour)
	full := Deps{
		Tasks:      service.NewTaskService(store, store),
		Categories: service.NewCategoryService(store, store),
		Accounts:   service.NewAccountService(store, auth.NewBcryptHasher(bcrypt.MinCost), tokens),
		Identities: tokens,
	}

	tests := []struct {
		name string
		deps Deps
		want struct {
			notNil bool
		}
	}{
		{
			name: "all services present",
			deps: full,
			want: struct{ notNil bool }{notNil: true},
		},
		{
			name: "missing identity resolver",
			deps: Deps{Tasks: full.Tasks, Categories: full.Categories, Accounts: full.Accounts},
			want: struct{ notNil bool }{notNil: false},
		},
		{
			name: "missing task service",
			deps: Deps{Categories: full.Categories, Accounts: full.Accounts, Identities: tokens},
			want: struct{ notNil bool }{notNil: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := NewTaskAPI(nil, tt.deps)
			assert.Equal(t, tt.want.notNil, api != nil)
		})
	}
}

func TestAuthEndpoints(t *testing.T) {
	ta := newTestAPI(t, nil)
	ta.register(t, "alice")

	tests := []struct {
		name string
		path string
		body any
		want struct {
			status int
			error  string
		}
	}{
		{
			name: "duplicate username",
			path: "/api/auth/register",
			body: gin.H{"username": "ALICE", "email": "other@example.com", "password": "secret123"},
			want: struct {
				status int
				error  string
			}{status: http.StatusConflict, error: "User already exists with this email or username"},
		},
		{
			name: "username too short",
			path: "/api/auth/register",
			body: gin.H{"username": "al", "email": "al@example.com", "password": "secret123"},
			want: struct {
				status int
				error  string
			}{status: http.StatusBadRequest, error: "Invalid username"},
		},
		{
			name: "malformed email",
			path: "/api/auth/register",
			body: gin.H{"username": "carol", "email": "not-an-email", "password": "secret123"},
			want: struct {
				status int
				error  string
			}{status: http.StatusBadRequest, error: "Invalid email"},
		},
		{
			name: "malformed json",
			path: "/api/auth/register",
			body: `{"username":`,
			want: struct {
				status int
				error  string
			}{status: http.StatusBadRequest, error: "Bad request"},
		},
		{
			name: "wrong password",
			path: "/api/auth/login",
			body: gin.H{"email": "alice@example.com", "password": "wrong-password"},
			want: struct {
				status int
				error  string
			}{status: http.StatusUnauthorized, error: "Invalid credentials"},
		},
		{
			name: "unknown user",
			path: "/api/auth/login",
			body: gin.H{"username": "nobody", "password": "secret123"},
			want: struct {
				status int
				error  string
			}{status: http.StatusUnauthorized, error: "Invalid credentials"},
		},
		{
			name: "login by email ignores case",
			path: "/api/auth/login",
			body: gin.H{"email": "Alice@Example.com", "password": "secret123"},
			want: struct {
				status int
				error  string
			}{status: http.StatusOK},
		},
		{
			name: "login by username",
			path: "/api/auth/login",
			body: gin.H{"username": "alice", "password": "secret123"},
			want: struct {
				status int
				error  string
			}{status: http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ta.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.want.status, w.Code, w.Body.String())
			body := decode(t, w)
			if tt.want.error != "" {
				assert.Equal(t, tt.want.error, body["error"])
				return
			}
			assert.NotEmpty(t, body["token"])
			assert.Equal(t, "Logged in successfully", body["message"])
			assert.Contains(t, w.Header().Get("Set-Cookie"), TokenCookie+"=")
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ta := newTestAPI(t, nil)
	token := ta.register(t, "alice")

	tests := []struct {
		name  string
		setup func(req *http.Request)
		want  struct {
			status int
		}
	}{
		{
			name:  "no credentials",
			setup: func(*http.Request) {},
			want:  struct{ status int }{status: http.StatusUnauthorized},
		},
		{
			name: "garbage bearer token",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer not-a-jwt")
			},
			want: struct{ status int }{status: http.StatusUnauthorized},
		},
		{
			name: "token signed with another secret",
			setup: func(req *http.Request) {
				other, _, err := auth.NewTokens("other", time.Hour).Issue(decodeIdentity(t, ta, token))
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+other)
			},
			want: struct{ status int }{status: http.StatusUnauthorized},
		},
		{
			name: "bearer header",
			setup: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+token)
			},
			want: struct{ status int }{status: http.StatusOK},
		},
		{
			name: "cookie",
			setup: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
			},
			want: struct{ status int }{status: http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			req.Header.Set("Accept-Language", "en")
			tt.setup(req)
			w := httptest.NewRecorder()
			ta.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want.status, w.Code)
			if tt.want.status == http.StatusUnauthorized {
				assert.Equal(t, "Unauthorized", decode(t, w)["error"])
			}
		})
	}
}

func decodeIdentity(t *testing.T, ta *testAPI, token string) models.Identity {
	t.Helper()
	w := ta.do(t, http.MethodGet, "/api/users/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	return models.Identity{
		UserID:   user["id"].(string),
		Email:    user["email"].(string),
		Username: user["username"].(string),
	}
}

func TestTaskCRUD(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	bob := ta.register(t, "bob")

	w := ta.do(t, http.MethodPost, "/api/tasks", gin.H{
		"title":       "  Write report  ",
		"description": "quarterly",
		"dueDate":     "2030-01-15",
	}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode(t, w)["task"].(map[string]any)
	assert.Equal(t, "Write report", task["title"])
	assert.Equal(t, "MEDIUM", task["priority"])
	assert.Equal(t, false, task["completed"])
	assert.Equal(t, "2030-01-15T00:00:00Z", task["dueDate"])
	id := int64(task["id"].(float64))
	path := fmt.Sprintf("/api/tasks/%d", id)

	t.Run("owner reads task", func(t *testing.T) {
		w := ta.do(t, http.MethodGet, path, nil, alice)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other user gets not found", func(t *testing.T) {
		w := ta.do(t, http.MethodGet, path, nil, bob)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Task not found", decode(t, w)["error"])

		w = ta.do(t, http.MethodPatch, path, gin.H{"completed": true}, bob)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = ta.do(t, http.MethodDelete, path, nil, bob)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non numeric id is not found", func(t *testing.T) {
		w := ta.do(t, http.MethodGet, "/api/tasks/abc", nil, alice)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("partial update clears description with null", func(t *testing.T) {
		w := ta.do(t, http.MethodPatch, path, `{"completed": true, "description": null, "priority": "HIGH"}`, alice)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		updated := decode(t, w)["task"].(map[string]any)
		assert.Equal(t, true, updated["completed"])
		assert.Nil(t, updated["description"])
		assert.Equal(t, "HIGH", updated["priority"])
		assert.Equal(t, "Write report", updated["title"])
		assert.Equal(t, "2030-01-15T00:00:00Z", updated["dueDate"])
	})

	t.Run("invalid update fields", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want string
		}{
			{name: "unknown priority", body: `{"priority": "SOMEDAY"}`, want: "Invalid task priority"},
			{name: "bad due date", body: `{"dueDate": "next week"}`, want: "Invalid due date"},
			{name: "blank title", body: `{"title": "   "}`, want: "Invalid task title"},
			{name: "missing category", body: `{"categoryId": 999}`, want: "Category does not exist"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := ta.do(t, http.MethodPut, path, tt.body, alice)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Equal(t, tt.want, decode(t, w)["error"])
			})
		}
	})

	t.Run("create without title", func(t *testing.T) {
		w := ta.do(t, http.MethodPost, "/api/tasks", gin.H{"description": "no title"}, alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Invalid task title", body["error"])
		assert.NotEmpty(t, body["details"])
	})

	t.Run("delete", func(t *testing.T) {
		w := ta.do(t, http.MethodDelete, path, nil, alice)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Task deleted successfully", decode(t, w)["message"])

		w = ta.do(t, http.MethodDelete, path, nil, alice)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListTasks(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	bob := ta.register(t, "bob")

	ta.createTask(t, alice, gin.H{"title": "Buy milk", "priority": "LOW", "completed": true})
	ta.createTask(t, alice, gin.H{"title": "Write report", "priority": "URGENT", "description": "Q3 numbers"})
	ta.createTask(t, alice, gin.H{"title": "Call plumber", "priority": "HIGH"})
	ta.createTask(t, bob, gin.H{"title": "Bob's milk run", "priority": "LOW"})

	tests := []struct {
		name  string
		query string
		want  struct {
			titles []string
		}
	}{
		{
			name:  "all own tasks newest first",
			query: "",
			want:  struct{ titles []string }{titles: []string{"Call plumber", "Write report", "Buy milk"}},
		},
		{
			name:  "completed only",
			query: "?completed=true",
			want:  struct{ titles []string }{titles: []string{"Buy milk"}},
		},
		{
			name:  "priority is case insensitive",
			query: "?priority=high",
			want:  struct{ titles []string }{titles: []string{"Call plumber"}},
		},
		{
			name:  "unknown priority matches nothing",
			query: "?priority=someday",
			want:  struct{ titles []string }{titles: []string{}},
		},
		{
			name:  "search hits description",
			query: "?search=q3",
			want:  struct{ titles []string }{titles: []string{"Write report"}},
		},
		{
			name:  "search never crosses owners",
			query: "?search=milk",
			want:  struct{ titles []string }{titles: []string{"Buy milk"}},
		},
		{
			name:  "priority ascending",
			query: "?sortBy=priority&order=asc",
			want:  struct{ titles []string }{titles: []string{"Buy milk", "Call plumber", "Write report"}},
		},
		{
			name:  "title ascending",
			query: "?sortBy=title&order=asc",
			want:  struct{ titles []string }{titles: []string{"Buy milk", "Call plumber", "Write report"}},
		},
		{
			name:  "malformed filters are ignored",
			query: "?completed=maybe&categoryId=abc&sortBy=color&order=sideways",
			want:  struct{ titles []string }{titles: []string{"Call plumber", "Write report", "Buy milk"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ta.do(t, http.MethodGet, "/api/tasks"+tt.query, nil, alice)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			body := decode(t, w)

			titles := []string{}
			for _, raw := range body["tasks"].([]any) {
				titles = append(titles, raw.(map[string]any)["title"].(string))
			}
			assert.Equal(t, tt.want.titles, titles)
			assert.Equal(t, float64(len(tt.want.titles)), body["count"])
		})
	}
}

func TestBulkUpdate(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	bob := ta.register(t, "bob")

	first := ta.createTask(t, alice, gin.H{"title": "first"})
	second := ta.createTask(t, alice, gin.H{"title": "second"})
	foreign := ta.createTask(t, bob, gin.H{"title": "foreign"})

	tooMany := make([]int64, service.MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}

	tests := []struct {
		name string
		body any
		want struct {
			status  int
			error   string
			updated float64
		}
	}{
		{
			name: "missing ids",
			body: gin.H{"updates": gin.H{"completed": true}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusBadRequest, error: "Task id list is empty"},
		},
		{
			name: "empty ids",
			body: gin.H{"taskIds": []int64{}, "updates": gin.H{"completed": true}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusBadRequest, error: "Task id list is empty"},
		},
		{
			name: "non positive id",
			body: gin.H{"taskIds": []int64{first, 0}, "updates": gin.H{"completed": true}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusBadRequest, error: "Invalid task id"},
		},
		{
			name: "batch too large",
			body: gin.H{"taskIds": tooMany, "updates": gin.H{"completed": true}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusBadRequest, error: "At most 50 tasks can be processed per request"},
		},
		{
			name: "no updates",
			body: gin.H{"taskIds": []int64{first}, "updates": gin.H{}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusBadRequest, error: "No fields to update"},
		},
		{
			name: "invalid priority",
			body: gin.H{"taskIds": []int64{first}, "updates": gin.H{"priority": "SOON"}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusBadRequest, error: "Invalid task priority"},
		},
		{
			name: "foreign id rejects the whole batch",
			body: gin.H{"taskIds": []int64{first, foreign}, "updates": gin.H{"completed": true}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusForbidden, error: "Some tasks were not found or belong to another user"},
		},
		{
			name: "duplicates count once",
			body: gin.H{"taskIds": []int64{first, first, second}, "updates": gin.H{"priority": "URGENT"}},
			want: struct {
				status  int
				error   string
				updated float64
			}{status: http.StatusOK, updated: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ta.do(t, http.MethodPatch, "/api/tasks/bulk", tt.body, alice)
			require.Equal(t, tt.want.status, w.Code, w.Body.String())
			body := decode(t, w)
			if tt.want.error != "" {
				assert.Equal(t, tt.want.error, body["error"])
				return
			}
			assert.Equal(t, "Tasks updated successfully", body["message"])
			assert.Equal(t, tt.want.updated, body["updatedCount"])
			for _, raw := range body["tasks"].([]any) {
				assert.Equal(t, "URGENT", raw.(map[string]any)["priority"])
			}
		})
	}

	// The rejected batch must not have touched the caller's own task.
	w := ta.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", first), nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["task"].(map[string]any)["completed"])
}

func TestBulkDelete(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	bob := ta.register(t, "bob")

	first := ta.createTask(t, alice, gin.H{"title": "first"})
	second := ta.createTask(t, alice, gin.H{"title": "second"})
	foreign := ta.createTask(t, bob, gin.H{"title": "foreign"})

	w := ta.do(t, http.MethodDelete, "/api/tasks/bulk", gin.H{"taskIds": []int64{first, foreign, 9999}}, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["deletedCount"])
	assert.Equal(t, []any{float64(first)}, body["deletedIds"])
	assert.Len(t, body["deletedTasks"], 1)

	w = ta.do(t, http.MethodDelete, "/api/tasks/bulk", gin.H{"taskIds": []int64{first, foreign}}, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ta.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", foreign), nil, bob)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ta.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", second), nil, alice)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsAndActivity(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	bob := ta.register(t, "bob")

	w := ta.do(t, http.MethodGet, "/api/tasks/stats", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode(t, w)["stats"].(map[string]any)
	assert.Equal(t, float64(0), empty["totalTasks"])
	assert.Equal(t, float64(0), empty["completionRate"])

	ta.createTask(t, alice, gin.H{"title": "done", "priority": "LOW", "completed": true})
	ta.createTask(t, alice, gin.H{"title": "late", "priority": "HIGH", "dueDate": "2000-01-01"})
	ta.createTask(t, alice, gin.H{"title": "open", "priority": "HIGH"})
	ta.createTask(t, bob, gin.H{"title": "bob", "priority": "URGENT"})

	w = ta.do(t, http.MethodGet, "/api/tasks/stats", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]any)
	assert.Equal(t, float64(3), stats["totalTasks"])
	assert.Equal(t, float64(1), stats["completedTasks"])
	assert.Equal(t, float64(2), stats["pendingTasks"])
	assert.Equal(t, float64(33), stats["completionRate"])
	assert.Equal(t, float64(1), stats["overdueTasks"])
	assert.Equal(t, float64(3), stats["recentTasks"])
	assert.Equal(t, map[string]any{"LOW": float64(1), "HIGH": float64(2)}, stats["priorityBreakdown"])

	w = ta.do(t, http.MethodGet, "/api/tasks/activity", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	activity := decode(t, w)
	assert.Equal(t, float64(3), activity["count"])
	for _, raw := range activity["activity"].([]any) {
		assert.Equal(t, "created", raw.(map[string]any)["action"])
	}
}

func TestCategoryEndpoints(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")

	w := ta.do(t, http.MethodPost, "/api/categories", gin.H{"name": "Work", "color": "#FF5733"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	category := decode(t, w)["category"].(map[string]any)
	id := int64(category["id"].(float64))
	path := fmt.Sprintf("/api/categories/%d", id)

	ta.createTask(t, alice, gin.H{"title": "in work", "categoryId": id})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   struct {
			status int
			error  string
		}
	}{
		{
			name:   "duplicate name",
			method: http.MethodPost,
			path:   "/api/categories",
			body:   gin.H{"name": "Work"},
			want: struct {
				status int
				error  string
			}{status: http.StatusConflict, error: "Category with this name already exists"},
		},
		{
			name:   "invalid color",
			method: http.MethodPost,
			path:   "/api/categories",
			body:   gin.H{"name": "Home", "color": "red"},
			want: struct {
				status int
				error  string
			}{status: http.StatusBadRequest, error: "Color must be a valid hex color (e.g., #FF5733)"},
		},
		{
			name:   "invalid color on update",
			method: http.MethodPatch,
			path:   path,
			body:   gin.H{"color": "#12345"},
			want: struct {
				status int
				error  string
			}{status: http.StatusBadRequest, error: "Color must be a valid hex color (e.g., #FF5733)"},
		},
		{
			name:   "unknown category",
			method: http.MethodGet,
			path:   "/api/categories/9999",
			want: struct {
				status int
				error  string
			}{status: http.StatusNotFound, error: "Category not found"},
		},
		{
			name:   "clear color with null",
			method: http.MethodPatch,
			path:   path,
			body:   `{"color": null}`,
			want: struct {
				status int
				error  string
			}{status: http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ta.do(t, tt.method, tt.path, tt.body, alice)
			require.Equal(t, tt.want.status, w.Code, w.Body.String())
			if tt.want.error != "" {
				assert.Equal(t, tt.want.error, decode(t, w)["error"])
			}
		})
	}

	w = ta.do(t, http.MethodGet, "/api/categories", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.Equal(t, float64(1), list["count"])
	summary := list["categories"].([]any)[0].(map[string]any)
	assert.Equal(t, "Work", summary["name"])
	assert.Nil(t, summary["color"])
	assert.Equal(t, float64(1), summary["taskCount"])

	w = ta.do(t, http.MethodDelete, path, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	deleted := decode(t, w)
	assert.Equal(t, "Category deleted successfully", deleted["message"])
	assert.Equal(t, float64(1), deleted["detachedTasks"])

	w = ta.do(t, http.MethodGet, "/api/tasks", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode(t, w)["tasks"].([]any)[0].(map[string]any)
	assert.Nil(t, task["categoryId"])
}

func TestProfileEndpoints(t *testing.T) {
	ta := newTestAPI(t, nil)
	alice := ta.register(t, "alice")
	ta.createTask(t, alice, gin.H{"title": "mine"})

	w := ta.do(t, http.MethodPut, "/api/users/me", gin.H{"firstName": "Alice"}, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Alice", body["user"].(map[string]any)["firstName"])
	assert.NotEmpty(t, body["token"])

	w = ta.do(t, http.MethodPut, "/api/users/me", gin.H{"email": "broken"}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(t, http.MethodDelete, "/api/users/me", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = ta.do(t, http.MethodGet, "/api/users/me", nil, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ta.do(t, http.MethodPost, "/api/auth/login", gin.H{"username": "alice", "password": "secret123"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	ta := newTestAPI(t, nil)
	w := ta.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Logged out successfully", decode(t, w)["message"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), TokenCookie+"=;")
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		health HealthChecker
		want   struct {
			status int
			body   string
		}
	}{
		{
			name: "storage reachable",
			want: struct {
				status int
				body   string
			}{status: http.StatusOK, body: "ok"},
		},
		{
			name:   "storage down",
			health: failingHealth{},
			want: struct {
				status int
				body   string
			}{status: http.StatusServiceUnavailable, body: "unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestAPI(t, tt.health)
			w := ta.do(t, http.MethodGet, "/api/health", nil, "")
			assert.Equal(t, tt.want.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.want.body, body["status"])
			assert.Equal(t, StorageMemory, body["storage"])
		})
	}
}

func TestUnknownRoutes(t *testing.T) {
	ta := newTestAPI(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		want   struct {
			status int
			error  string
		}
	}{
		{
			name:   "unknown path",
			method: http.MethodGet,
			path:   "/api/nothing-here",
			want: struct {
				status int
				error  string
			}{status: http.StatusNotFound, error: "Route not found"},
		},
		{
			name:   "wrong method",
			method: http.MethodPut,
			path:   "/api/tasks",
			want: struct {
				status int
				error  string
			}{status: http.StatusMethodNotAllowed, error: "Method not allowed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ta.do(t, tt.method, tt.path, nil, "")
			assert.Equal(t, tt.want.status, w.Code)
			assert.Equal(t, tt.want.error, decode(t, w)["error"])
		})
	}
}

func TestDefaultLanguage(t *testing.T) {
	ta := newTestAPI(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	ta.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "нет доступа", decode(t, w)["error"])
}
