// Package controllers holds the application's HTTP controllers.
package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/km-arc/h3ravel/app/models"
	"github.com/km-arc/h3ravel/framework/cache"
	"github.com/km-arc/h3ravel/framework/container"
	"github.com/km-arc/h3ravel/framework/foundation"
	"github.com/km-arc/h3ravel/framework/hashing"
	"github.com/km-arc/h3ravel/framework/http"
	"github.com/km-arc/h3ravel/framework/routing"
)

// usersCacheKey holds the index listing.
const usersCacheKey = "users.all"

// UserController is bound as "UserController" and resolved per request.
type UserController struct {
	app *foundation.Application
}

func NewUserController(app *foundation.Application) *UserController {
	return &UserController{app: app}
}

func (c *UserController) Actions() map[string]routing.HandlerFunc {
	return map[string]routing.HandlerFunc{
		"index": c.Index,
		"show":  c.Show,
		"store": c.Store,
	}
}

// Index lists users, cached for a minute.
func (c *UserController) Index(ctx *http.Context) (any, error) {
	db, err := container.Resolve[*sqlx.DB](c.app.Container, "db")
	if err != nil {
		return nil, err
	}
	store, err := container.Resolve[*cache.Repository](c.app.Container, "cache")
	if err != nil {
		return nil, err
	}

	return cache.Remember(ctx.Context(), store, usersCacheKey, time.Minute, func(qctx context.Context) ([]models.User, error) {
		users := []models.User{}
		err := db.SelectContext(qctx, &users, "SELECT id, name, email FROM users ORDER BY id")
		return users, err
	})
}

// Show returns the user bound to {user}.
func (c *UserController) Show(ctx *http.Context) (any, error) {
	return http.BoundModel[*models.User](ctx, "user")
}

type storeUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Store validates and inserts a user, then drops the cached listing.
func (c *UserController) Store(ctx *http.Context) (any, error) {
	var in storeUserRequest
	if err := ctx.Request.Validated(&in); err != nil {
		return nil, err
	}

	hasher, err := container.Resolve[*hashing.Hasher](c.app.Container, "hash")
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Make(in.Password)
	if err != nil {
		return nil, err
	}

	db, err := container.Resolve[*sqlx.DB](c.app.Container, "db")
	if err != nil {
		return nil, err
	}
	user := &models.User{Name: in.Name, Email: in.Email}
	if err := insertUser(ctx.Context(), db, user, hash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if store, err := container.Resolve[*cache.Repository](c.app.Container, "cache"); err == nil {
		if err := store.Forget(ctx.Context(), usersCacheKey); err != nil {
			c.app.Logger().Warn("users cache invalidation failed",
				zap.String("key", usersCacheKey),
				zap.Error(err),
			)
		}
	}
	return ctx.Response.Created(user)
}

// insertUser stores u and sets its ID. lib/pq has no LastInsertId, so
// postgres reads the key back with RETURNING.
func insertUser(ctx context.Context, db *sqlx.DB, u *models.User, hash string) error {
	const insert = "INSERT INTO users (name, email, password) VALUES (?, ?, ?)"

	if db.DriverName() == "postgres" {
		return db.QueryRowxContext(ctx, db.Rebind(insert+" RETURNING id"), u.Name, u.Email, hash).Scan(&u.ID)
	}

	res, err := db.ExecContext(ctx, db.Rebind(insert), u.Name, u.Email, hash)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted id: %w", err)
	}
	u.ID = id
	return nil
}
