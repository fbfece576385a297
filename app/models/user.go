// Package models holds the application's database models.
package models

// User is a row of the users table.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Password string `db:"password" json:"-"`
}

func (*User) TableName() string { return "users" }
