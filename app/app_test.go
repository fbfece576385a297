package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/h3ravel/app"
	"github.com/km-arc/h3ravel/framework/bootstrap"
	"github.com/km-arc/h3ravel/framework/cache"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/scheduling"
)

// fakeDB binds "db" in place of the deferred database provider.
type fakeDB struct {
	foundation.BaseProvider
	db *sqlx.DB
}

func (p *fakeDB) Name() string { return "fake-db" }
func (p *fakeDB) Register(_ context.Context, a *foundation.Application) error {
	a.Instance("db", p.db)
	return nil
}

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "testing")
	t.Setenv("APP_DEBUG", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("BCRYPT_ROUNDS", "4")
}

func setup(t *testing.T, opts ...foundation.Option) (*foundation.Application, http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	return setupDriver(t, "sqlmock", opts...)
}

func setupDriver(t *testing.T, driver string, opts ...foundation.Option) (*foundation.Application, http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	testEnv(t)

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	a, err := app.Configure("..", opts...).
		WithoutProviders("database").
		WithProviders(&fakeDB{db: sqlx.NewDb(raw, driver)}).
		Create(context.Background())
	require.NoError(t, err)

	h, err := bootstrap.Handler(a)
	require.NoError(t, err)
	return a, h, mock
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Accept", "application/json")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUsers_IndexIsCached(t *testing.T) {
	_, h, mock := setup(t)
	mock.ExpectQuery(`SELECT id, name, email FROM users ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(1, "Ada", "ada@example.com").
			AddRow(2, "Grace", "grace@example.com"))

	want := `[{"id":1,"name":"Ada","email":"ada@example.com"},{"id":2,"name":"Grace","email":"grace@example.com"}]`
	for range 2 {
		rec := do(h, http.MethodGet, "/api/users", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, want, rec.Body.String())
		assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_ShowBindsModel(t *testing.T) {
	_, h, mock := setup(t)
	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \? LIMIT 1`).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password"}).
			AddRow(1, "Ada", "ada@example.com", "$2y$04$hash"))
	mock.ExpectQuery(`SELECT \* FROM users WHERE id = \? LIMIT 1`).
		WithArgs("9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password"}))

	rec := do(h, http.MethodGet, "/api/users/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Ada","email":"ada@example.com"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/api/users/9", "", "").Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_Store(t *testing.T) {
	_, h, mock := setup(t)

	body := `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/api/users", body, "").Code)

	rec := do(h, http.MethodPost, "/api/users", `{"name":"A","email":"nope"}`, "secret")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)

	mock.ExpectExec(`INSERT INTO users \(name, email, password\) VALUES \(\?, \?, \?\)`).
		WithArgs("Ada", "ada@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	rec = do(h, http.MethodPost, "/api/users", body, "secret")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"id":3,"name":"Ada","email":"ada@example.com"}}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_StoreReturningIDOnPostgres(t *testing.T) {
	_, h, mock := setupDriver(t, "postgres")
	mock.ExpectQuery(`INSERT INTO users \(name, email, password\) VALUES \(\$1, \$2, \$3\) RETURNING id`).
		WithArgs("Ada", "ada@example.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	body := `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`
	rec := do(h, http.MethodPost, "/api/users", body, "secret")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"data":{"id":7,"name":"Ada","email":"ada@example.com"}}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_StoreFailsWhenInsertedIDIsUnavailable(t *testing.T) {
	_, h, mock := setup(t)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("not supported")))

	body := `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`
	rec := do(h, http.MethodPost, "/api/users", body, "secret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"id"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

// forgetFails is a memory store whose Forget always errors.
type forgetFails struct {
	*cache.MemoryStore
}

func (forgetFails) Forget(context.Context, string) error { return errors.New("cache down") }

func TestUsers_StoreLogsFailedCacheInvalidation(t *testing.T) {
	a, h, mock := setup(t)
	core, logs := observer.New(zapcore.WarnLevel)
	a.Instance("log", zap.New(core))
	store := forgetFails{cache.NewMemoryStore(0)}
	a.Instance("cache", cache.New(store, "", time.Minute))

	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(3, 1))

	body := `{"name":"Ada","email":"ada@example.com","password":"correct horse"}`
	rec := do(h, http.MethodPost, "/api/users", body, "secret")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	entries := logs.FilterMessage("users cache invalidation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cache down", entries[0].ContextMap()["error"])
	assert.Equal(t, "users.all", entries[0].ContextMap()["key"])
}

func TestNewsletter_RuleValidation(t *testing.T) {
	_, h, _ := setup(t)

	form := url.Values{"email": {"ada@example.com"}, "age": {"12"}}
	req := httptest.NewRequest(http.MethodPost, "/api/newsletter", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "age")

	form.Set("age", "30")
	req = httptest.NewRequest(http.MethodPost, "/api/newsletter", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"email":"ada@example.com"}}`, rec.Body.String())
}

func TestWeb_Routes(t *testing.T) {
	_, h, _ := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to h3ravel")
	assert.Contains(t, rec.Body.String(), "v"+foundation.Version)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/profile", "", "").Code)
	rec = do(h, http.MethodGet, "/profile", "", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"authenticated"}`, rec.Body.String())
}

func TestConsole_SchedulesCachePrune(t *testing.T) {
	a, _, _ := setup(t, foundation.WithConsole(true))

	schedule := container.MustResolve[*scheduling.Schedule](a.Container, "schedule")
	require.Len(t, schedule.Events(), 1)
	ev := schedule.Events()[0]
	assert.Equal(t, "cache:prune", ev.Name())
	assert.Equal(t, "0 0 * * *", ev.Expression())

	names := bootstrap.Console(a).Names()
	assert.Contains(t, names, "route:list")
	assert.Contains(t, names, "schedule:run")
}
