// Package storage provides persistent storage for user records.
package storage

import (
	"context"
	"database/sql"

	"github.com/soypete/userapi/pkg/metrics"
)

// User represents a user record. Name and Age are nil when stored as NULL.
type User struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
	Age  *int64  `json:"age"`
}

// UserStore is the set of operations the HTTP API needs from user persistence.
//
// Update and Delete succeed when no row matches the id.
type UserStore interface {
	ListAll(ctx context.Context) ([]*User, error)
	Insert(ctx context.Context, name *string, age *int64) (*User, error)
	Update(ctx context.Context, id int64, name *string, age *int64) error
	Delete(ctx context.Context, id int64) error
}

// SQLUserStore implements UserStore on the users table. The queries use $n
// placeholders, which both go-sqlite3 and lib/pq accept.
type SQLUserStore struct {
	db *sql.DB
}

// NewSQLUserStore creates a new user store.
func NewSQLUserStore(db *sql.DB) *SQLUserStore {
	return &SQLUserStore{db: db}
}

// ListAll returns every user ordered by id.
func (s *SQLUserStore) ListAll(ctx context.Context) (users []*User, err error) {
	defer func() { metrics.ObserveStore("list", err) }()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, age FROM users ORDER BY id`)
	if err != nil {
		return nil, storageError("list", err)
	}
	defer rows.Close()

	users = []*User{}
	for rows.Next() {
		var (
			u    User
			name sql.NullString
			age  sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &name, &age); err != nil {
			return nil, storageError("list", err)
		}
		if name.Valid {
			u.Name = &name.String
		}
		if age.Valid {
			u.Age = &age.Int64
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("list", err)
	}

	return users, nil
}

// Insert stores a new user and returns it with its assigned id.
func (s *SQLUserStore) Insert(ctx context.Context, name *string, age *int64) (user *User, err error) {
	defer func() { metrics.ObserveStore("insert", err) }()

	query := `INSERT INTO users (name, age) VALUES ($1, $2) RETURNING id`

	user = &User{Name: name, Age: age}
	if err := s.db.QueryRowContext(ctx, query, name, age).Scan(&user.ID); err != nil {
		return nil, storageError("insert", err)
	}

	return user, nil
}

// Update overwrites name and age of the user with the given id.
func (s *SQLUserStore) Update(ctx context.Context, id int64, name *string, age *int64) (err error) {
	defer func() { metrics.ObserveStore("update", err) }()

	query := `UPDATE users SET name = $1, age = $2 WHERE id = $3`
	if _, err := s.db.ExecContext(ctx, query, name, age, id); err != nil {
		return storageError("update", err)
	}
	return nil
}

// Delete removes the user with the given id.
func (s *SQLUserStore) Delete(ctx context.Context, id int64) (err error) {
	defer func() { metrics.ObserveStore("delete", err) }()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return storageError("delete", err)
	}
	return nil
}
