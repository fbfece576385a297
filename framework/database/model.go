package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Model is a struct mapped to a table.
//
//	type User struct {
//	    ID    int64  `db:"id" json:"id"`
//	    Email string `db:"email" json:"email"`
//	}
//
//	func (*User) TableName() string { return "users" }
type Model interface {
	TableName() string
}

// RouteKeyed models are bound by a column other than "id".
type RouteKeyed interface {
	RouteKeyName() string
}

// DefaultRouteKey is the column route-model binding matches on.
const DefaultRouteKey = "id"

// RouteKeyOf returns the route key column of m.
func RouteKeyOf(m Model) string {
	if rk, ok := m.(RouteKeyed); ok && rk.RouteKeyName() != "" {
		return rk.RouteKeyName()
	}
	return DefaultRouteKey
}

// Find loads the first row of T's table where column = value. A missing row
// returns an error wrapping sql.ErrNoRows.
func Find[T any, PT interface {
	*T
	Model
}](ctx context.Context, db *sqlx.DB, column string, value any) (*T, error) {
	dest := PT(new(T))
	query := db.Rebind(fmt.Sprintf("SELECT * FROM %s WHERE %s = ? LIMIT 1", dest.TableName(), column))

	if err := db.GetContext(ctx, dest, query, value); err != nil {
		return nil, fmt.Errorf("%s.%s = %v: %w", dest.TableName(), column, value, err)
	}
	return (*T)(dest), nil
}

// Binder loads T by its route key for route-model binding. It satisfies
// routing.Binder.
//
//	r.Model("user", database.BinderFor[User](db))
type Binder[T any, PT interface {
	*T
	Model
}] struct {
	db  *sqlx.DB
	key string
}

// BinderFor binds T by its RouteKeyName, or "id".
func BinderFor[T any, PT interface {
	*T
	Model
}](db *sqlx.DB) *Binder[T, PT] {
	return &Binder[T, PT]{db: db, key: RouteKeyOf(PT(new(T)))}
}

// By returns a copy of the binder matching on column instead, like
// Laravel's {post:slug}.
func (b *Binder[T, PT]) By(column string) *Binder[T, PT] {
	return &Binder[T, PT]{db: b.db, key: column}
}

// Key is the column the binder matches on.
func (b *Binder[T, PT]) Key() string { return b.key }

func (b *Binder[T, PT]) Bind(ctx context.Context, value string) (any, error) {
	m, err := Find[T, PT](ctx, b.db, b.key, value)
	if err != nil {
		return nil, err
	}
	return m, nil
}
