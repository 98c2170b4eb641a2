package store

import (
	"database/sql"
	"fmt"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // requester, driver, manager, vehicle_manager, admin
	LocationID   *int64    `json:"location_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (db *DB) CreateUser(u *User) error {
	id, err := db.insertReturningID(db.Q(`INSERT INTO users (username, password_hash, role, location_id) VALUES (?, ?, ?, ?)`),
		u.Username, u.PasswordHash, u.Role, int64Arg(u.LocationID))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var locationID sql.NullInt64
	var createdAt any
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &locationID, &createdAt)
	if err != nil {
		return nil, err
	}
	if locationID.Valid {
		u.LocationID = &locationID.Int64
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

const userSelectCols = `id, username, password_hash, role, location_id, created_at`

func (db *DB) GetUser(id int64) (*User, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM users WHERE id=?`, userSelectCols)), id)
	return scanUser(row)
}

func (db *DB) GetUserByUsername(username string) (*User, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM users WHERE username=?`, userSelectCols)), username)
	return scanUser(row)
}

func (db *DB) ListUsersByRole(role string) ([]*User, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM users WHERE role=? ORDER BY username`, userSelectCols)), role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) UserExists() (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count > 0, err
}
