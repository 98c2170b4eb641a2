package store

import (
	"fmt"
	"time"
)

type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // "shop" or "warehouse"
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (db *DB) CreateLocation(l *Location) error {
	id, err := db.insertReturningID(db.Q(`INSERT INTO locations (name, kind) VALUES (?, ?)`), l.Name, l.Kind)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	l.ID = id
	return nil
}

func (db *DB) GetLocation(id int64) (*Location, error) {
	var l Location
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, name, kind, created_at FROM locations WHERE id=?`), id).
		Scan(&l.ID, &l.Name, &l.Kind, &createdAt)
	if err != nil {
		return nil, err
	}
	l.CreatedAt = parseTime(createdAt)
	return &l, nil
}

func (db *DB) ListLocations() ([]*Location, error) {
	rows, err := db.Query(db.Q(`SELECT id, name, kind, created_at FROM locations ORDER BY name`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var locations []*Location
	for rows.Next() {
		var l Location
		var createdAt any
		if err := rows.Scan(&l.ID, &l.Name, &l.Kind, &createdAt); err != nil {
			return nil, err
		}
		l.CreatedAt = parseTime(createdAt)
		locations = append(locations, &l)
	}
	return locations, rows.Err()
}

func (db *DB) CreateSupplier(s *Supplier) error {
	id, err := db.insertReturningID(db.Q(`INSERT INTO suppliers (name) VALUES (?)`), s.Name)
	if err != nil {
		return fmt.Errorf("create supplier: %w", err)
	}
	s.ID = id
	return nil
}

func (db *DB) GetSupplier(id int64) (*Supplier, error) {
	var s Supplier
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, name, created_at FROM suppliers WHERE id=?`), id).
		Scan(&s.ID, &s.Name, &createdAt)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (db *DB) ListSuppliers() ([]*Supplier, error) {
	rows, err := db.Query(db.Q(`SELECT id, name, created_at FROM suppliers ORDER BY name`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []*Supplier
	for rows.Next() {
		var s Supplier
		var createdAt any
		if err := rows.Scan(&s.ID, &s.Name, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		suppliers = append(suppliers, &s)
	}
	return suppliers, rows.Err()
}
