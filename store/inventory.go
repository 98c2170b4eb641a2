package store

import (
	"database/sql"
	"fmt"
	"time"
)

type StockLevel struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	Bags       int64     `json:"bags"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type StockMovement struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	DeltaBags  int64     `json:"delta_bags"`
	Kind       string    `json:"kind"`
	RefType    string    `json:"ref_type"`
	RefID      int64     `json:"ref_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApplyStockDelta adjusts a location balance and journals the movement in one
// transaction. Negative deltas fail if the balance would go below zero.
func (db *DB) ApplyStockDelta(locationID, deltaBags int64, kind, refType string, refID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bags int64
	err = tx.QueryRow(db.Q(`SELECT bags FROM stock_levels WHERE location_id=?`), locationID).Scan(&bags)
	if err == sql.ErrNoRows {
		bags = 0
		_, err = tx.Exec(db.Q(`INSERT INTO stock_levels (location_id, bags) VALUES (?, 0)`), locationID)
	}
	if err != nil {
		return fmt.Errorf("stock level for location %d: %w", locationID, err)
	}
	if bags+deltaBags < 0 {
		return fmt.Errorf("insufficient stock at location %d: have %d, delta %d", locationID, bags, deltaBags)
	}

	_, err = tx.Exec(db.Q(`UPDATE stock_levels SET bags=bags+?, updated_at=datetime('now','localtime') WHERE location_id=?`),
		deltaBags, locationID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(db.Q(`INSERT INTO stock_movements (location_id, delta_bags, kind, ref_type, ref_id) VALUES (?, ?, ?, ?, ?)`),
		locationID, deltaBags, kind, refType, refID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) GetStockLevel(locationID int64) (int64, error) {
	var bags int64
	err := db.QueryRow(db.Q(`SELECT bags FROM stock_levels WHERE location_id=?`), locationID).Scan(&bags)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return bags, err
}

func (db *DB) ListStockLevels() ([]*StockLevel, error) {
	rows, err := db.Query(`SELECT id, location_id, bags, updated_at FROM stock_levels ORDER BY location_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []*StockLevel
	for rows.Next() {
		var s StockLevel
		var updatedAt any
		if err := rows.Scan(&s.ID, &s.LocationID, &s.Bags, &updatedAt); err != nil {
			return nil, err
		}
		s.UpdatedAt = parseTime(updatedAt)
		levels = append(levels, &s)
	}
	return levels, rows.Err()
}

func (db *DB) ListStockMovements(locationID int64, limit int) ([]*StockMovement, error) {
	query := `SELECT id, location_id, delta_bags, kind, ref_type, ref_id, created_at FROM stock_movements`
	var args []any
	if locationID != 0 {
		query += ` WHERE location_id=?`
		args = append(args, locationID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []*StockMovement
	for rows.Next() {
		var m StockMovement
		var createdAt any
		if err := rows.Scan(&m.ID, &m.LocationID, &m.DeltaBags, &m.Kind, &m.RefType, &m.RefID, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}
