package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hammamikhairi/kitchenops/internal/auth"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/engine"
	"github.com/hammamikhairi/kitchenops/internal/inventory"
	"github.com/hammamikhairi/kitchenops/internal/kitchen"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/prep"
	"github.com/hammamikhairi/kitchenops/internal/recipe"
	"github.com/hammamikhairi/kitchenops/internal/server"
	"github.com/hammamikhairi/kitchenops/internal/storage"
	"github.com/hammamikhairi/kitchenops/internal/timer"
)

type testEnv struct {
	Server  *server.Server
	Router  *gin.Engine
	Svc     server.Services
	Ticker  *timer.ManualTicker
	Admin   string // bearer tokens
	Chef    string
	Cutter  string
	Cleanup func()
}

var fixedNow = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T, opts ...engine.Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.New(logger.LevelOff, nil)
	now := func() time.Time { return fixedNow }

	db, err := storage.Open("", log)
	require.NoError(t, err)

	recipes := storage.NewRecipeRepo(db, log)
	ticker := timer.NewManualTicker()
	opts = append([]engine.Option{engine.WithTimerOptions(timer.WithTickerFactory(ticker.Factory()))}, opts...)
	eng := engine.New(recipes, storage.NewMemoryStore(log), log, opts...)

	svc := server.Services{
		Auth:      auth.NewService(storage.NewProfileRepo(db, log), log, auth.WithBcryptCost(bcrypt.MinCost)),
		Recipes:   recipe.NewService(recipes, log),
		Inventory: inventory.NewService(storage.NewInventoryRepo(db, log), log),
		Plans:     prep.NewService(storage.NewPlanRepo(db, log), log, prep.WithNow(now)),
		Kitchens:  kitchen.NewService(storage.NewKitchenRepo(db, log), log),
		Engine:    eng,
	}
	srv := server.New(svc, log, server.WithNow(now))

	env := &testEnv{
		Server: srv,
		Router: srv.Routes(),
		Svc:    svc,
		Ticker: ticker,
		Cleanup: func() {
			srv.CloseWebSockets()
			eng.Shutdown()
			_ = db.Close()
		},
	}

	env.Admin = register(t, svc.Auth, "admin@kitchen.test", domain.RoleAdmin)
	env.Chef = register(t, svc.Auth, "chef@kitchen.test", domain.RoleChef)
	env.Cutter = register(t, svc.Auth, "cutter@kitchen.test", domain.RoleCutter)
	return env
}

func register(t *testing.T, a *auth.Service, email string, role domain.Role) string {
	t.Helper()
	ctx := context.Background()
	_, err := a.Register(ctx, string(role), email, "password123", role)
	require.NoError(t, err)
	token, _, err := a.Login(ctx, email, "password123")
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func soupDraft() recipe.Draft {
	return recipe.Draft{
		Name:        "Soup",
		Description: "A simple soup",
		Steps: []recipe.StepDraft{
			{Instruction: "Boil water", DelaySec: 2, DurationSec: 3},
			{Instruction: "Add salt", DelaySec: 0, DurationSec: 1},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCORSPreflight(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("OPTIONS", "/recipes", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoginFlow(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("POST", "/auth/login", "", server.LoginRequest{Email: "chef@kitchen.test", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	errResp := decode[server.ErrorResponse](t, w)
	assert.Equal(t, http.StatusUnauthorized, errResp.Status)

	w = env.do("POST", "/auth/login", "", server.LoginRequest{Email: "chef@kitchen.test", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[server.LoginResponse](t, w)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, domain.RoleChef, login.Profile.Role)
	assert.True(t, login.ExpiresAt.After(fixedNow))

	w = env.do("GET", "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chef@kitchen.test", decode[domain.Profile](t, w).Email)

	w = env.do("POST", "/auth/logout", login.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do("GET", "/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequiresToken(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	for _, token := range []string{"", "not-a-token"} {
		w := env.do("GET", "/recipes", token, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestRecipeLifecycle(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("POST", "/recipes", env.Cutter, soupDraft())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("POST", "/recipes", env.Chef, soupDraft())
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[domain.Recipe](t, w)
	require.Len(t, created.Steps, 2)
	assert.Equal(t, 2, created.Steps[1].Number)

	w = env.do("GET", "/recipes?search=soup", env.Cutter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.RecipeSummary](t, w), 1)

	w = env.do("PUT", "/recipes/"+created.ID+"/steps/2", env.Chef,
		recipe.StepDraft{Instruction: "Add pepper", DurationSec: 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Add pepper", decode[domain.Step](t, w).Instruction)

	w = env.do("PUT", "/recipes/"+created.ID+"/steps/two", env.Chef, recipe.StepDraft{Instruction: "x", DurationSec: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("DELETE", "/recipes/"+created.ID, env.Chef, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do("GET", "/recipes/"+created.ID, env.Chef, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRecipeValidation(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	draft := soupDraft()
	draft.Steps[0].DurationSec = 0
	w := env.do("POST", "/recipes", env.Chef, draft)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "steps[0].duration")

	req := httptest.NewRequest("POST", "/recipes", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+env.Chef)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), server.ErrInvalidJSON.Error())

	w = env.do("GET", "/recipes", env.Chef, nil)
	assert.Empty(t, decode[[]domain.RecipeSummary](t, w))
}

func TestSessionEndpoints(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("POST", "/recipes", env.Chef, soupDraft())
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.Recipe](t, w).ID

	w = env.do("GET", "/recipes/"+id+"/session", env.Cutter, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do("POST", "/recipes/"+id+"/session", env.Cutter, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sess := decode[domain.Session](t, w)
	assert.Equal(t, domain.SessionState{StepIndex: 0, Phase: domain.PhaseDelay, Remaining: 2}, sess.State)

	w = env.do("POST", "/recipes/"+id+"/session", env.Chef, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.True(t, env.Ticker.Fire())
	assert.Eventually(t, func() bool {
		w := env.do("GET", "/recipes/"+id+"/session", env.Chef, nil)
		return w.Code == http.StatusOK && decode[domain.Session](t, w).State.Remaining == 1
	}, time.Second, 10*time.Millisecond)

	w = env.do("POST", "/recipes/"+id+"/session/done", env.Chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.SessionState{StepIndex: 1, Phase: domain.PhaseAction, Remaining: 1}, decode[domain.SessionState](t, w))

	w = env.do("GET", "/recipes/"+id, env.Chef, nil)
	r := decode[domain.Recipe](t, w)
	assert.NotNil(t, r.Steps[0].CompletedAt)
	assert.Nil(t, r.Steps[1].CompletedAt)

	w = env.do("GET", "/sessions", env.Chef, nil)
	assert.Len(t, decode[[]domain.Session](t, w), 1)

	w = env.do("DELETE", "/recipes/"+id+"/session", env.Chef, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do("POST", "/recipes/"+id+"/session/done", env.Chef, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInventoryEndpoints(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	item := domain.InventoryItem{
		Name: "Onion", Category: domain.CategoryVegetable, Quantity: 3,
		Unit: domain.UnitKilogram, Threshold: 5, PricePerUnit: 2,
	}
	w := env.do("POST", "/inventory", env.Cutter, item)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("POST", "/inventory", env.Chef, item)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.InventoryItem](t, w).ID

	w = env.do("GET", "/inventory/"+id, env.Cutter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, inventory.StatusLow, decode[inventory.Item](t, w).Status)

	w = env.do("GET", "/inventory?category=vegetable", env.Cutter, nil)
	assert.Len(t, decode[[]inventory.Item](t, w), 1)

	w = env.do("GET", "/inventory/summary", env.Cutter, nil)
	sum := decode[inventory.Summary](t, w)
	assert.Equal(t, inventory.Summary{TotalItems: 1, LowStock: 1, TotalValue: 6}, sum)

	item.Category = "rocks"
	w = env.do("PUT", "/inventory/"+id, env.Chef, item)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("DELETE", "/inventory/"+id, env.Chef, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do("DELETE", "/inventory/"+id, env.Chef, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlanEndpoints(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	plan := domain.PreparationPlan{
		KitchenID: "k1", Date: "2026-06-10", MealType: domain.MealLunch, EstimatedPlates: 40,
	}
	w := env.do("POST", "/plans", env.Chef, plan)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[domain.PreparationPlan](t, w).ID

	w = env.do("GET", "/plans?tab=today", env.Cutter, nil)
	assert.Len(t, decode[[]domain.PreparationPlan](t, w), 1)

	w = env.do("POST", "/plans/"+id+"/advance", env.Chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PlanInProgress, decode[domain.PreparationPlan](t, w).Status)

	w = env.do("POST", "/plans/"+id+"/outcome", env.Chef,
		server.OutcomeRequest{ActualPlates: 38, Wastage: 1.5, Reason: "overcooked"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.PlanCompleted, decode[domain.PreparationPlan](t, w).Status)

	w = env.do("GET", "/plans/wastage", env.Cutter, nil)
	days := decode[[]prep.WastageDay](t, w)
	require.Len(t, days, 7)
	assert.Equal(t, 1.5, days[6].Wastage)

	w = env.do("GET", "/plans/today", env.Cutter, nil)
	assert.Equal(t, 1, decode[prep.DaySummary](t, w).Plans)
}

func TestKitchenEndpoints(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("POST", "/kitchens", env.Chef, server.KitchenRequest{Name: "North", Location: "Tunis"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("POST", "/kitchens", env.Admin, server.KitchenRequest{Name: "North", Location: "Tunis"})
	require.Equal(t, http.StatusCreated, w.Code)
	k := decode[domain.Kitchen](t, w)
	assert.Equal(t, domain.KitchenActive, k.Status)

	w = env.do("PUT", "/kitchens/"+k.ID+"/status", env.Admin, server.StatusRequest{Status: domain.KitchenMaintenance})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("GET", "/kitchens/stats", env.Chef, nil)
	assert.Equal(t, kitchen.Stats{Total: 1, Maintenance: 1}, decode[kitchen.Stats](t, w))

	w = env.do("GET", "/kitchens?page=x", env.Chef, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("GET", "/kitchens?search=tunis", env.Chef, nil)
	page := decode[kitchen.Page](t, w)
	assert.Equal(t, 1, page.Total)
}

func TestUserAdministration(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("GET", "/users", env.Chef, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do("GET", "/users", env.Admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Profile](t, w), 3)

	w = env.do("POST", "/users", env.Admin, server.CreateUserRequest{
		Name: "Sam", Email: "sam@kitchen.test", Password: "password123", Role: domain.RoleSupervisor,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sam := decode[domain.Profile](t, w)

	w = env.do("POST", "/users", env.Admin, server.CreateUserRequest{
		Name: "Sam", Email: "sam@kitchen.test", Password: "password123", Role: domain.RoleSupervisor,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	role := domain.RoleChef
	w = env.do("PUT", "/users/"+sam.ID, env.Admin, auth.ProfileUpdate{Role: &role})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RoleChef, decode[domain.Profile](t, w).Role)

	w = env.do("PUT", "/users/password", env.Admin, server.PasswordRequest{Email: "sam@kitchen.test", Password: "new-password"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do("POST", "/auth/login", "", server.LoginRequest{Email: "sam@kitchen.test", Password: "new-password"})
	assert.Equal(t, http.StatusOK, w.Code)
}
