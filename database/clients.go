package database

import (
	"database/sql"
	"errors"
	"fmt"

	"termomaz/model"

	"github.com/jmoiron/sqlx"
)

const clientColumns = `id, name, phone, email, address`

// GetAllClients lists clients by name. A non-empty filter query matches name, phone or email.
func GetAllClients(db DBTX, f model.ClientFilters) ([]model.Client, error) {
	q := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	var args []interface{}
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q += ` AND (name LIKE ? OR phone LIKE ? OR email LIKE ?)`
		args = append(args, like, like, like)
	}
	q += ` ORDER BY name, id`

	clients := []model.Client{}
	if err := db.Select(&clients, db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to get all clients: %w", err)
	}
	return clients, nil
}

func GetClientByID(db DBTX, id int64) (*model.Client, error) {
	var c model.Client
	err := db.Get(&c, db.Rebind(`SELECT `+clientColumns+` FROM clients WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(fmt.Sprintf("GetClientByID (ID: %d)", id), err)
	}
	return &c, nil
}

// GetClientByName returns nil without error when no client has that exact name.
func GetClientByName(db DBTX, name string) (*model.Client, error) {
	var c model.Client
	err := db.Get(&c, db.Rebind(`SELECT `+clientColumns+` FROM clients WHERE name = ? ORDER BY id LIMIT 1`), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetClientByName (Name: %s) failed: %w", name, err)
	}
	return &c, nil
}

func CreateClientInTx(tx *sqlx.Tx, in model.ClientInput) (int64, error) {
	const q = `INSERT INTO clients (name, phone, email, address) VALUES (?, ?, ?, ?) RETURNING id`
	var id int64
	if err := tx.Get(&id, tx.Rebind(q), in.Name, in.Phone, in.Email, in.Address); err != nil {
		return 0, fmt.Errorf("CreateClientInTx (Name: %s) failed: %w", in.Name, err)
	}
	return id, nil
}

func UpdateClientInTx(tx *sqlx.Tx, id int64, in model.ClientInput) error {
	const q = `UPDATE clients SET name = ?, phone = ?, email = ?, address = ? WHERE id = ?`
	res, err := tx.Exec(tx.Rebind(q), in.Name, in.Phone, in.Email, in.Address, id)
	if err != nil {
		return fmt.Errorf("UpdateClientInTx (ID: %d) failed: %w", id, err)
	}
	return expectOne(fmt.Sprintf("UpdateClientInTx (ID: %d)", id), res)
}

// DeleteClientInTx refuses to delete a client that still has orders.
func DeleteClientInTx(tx *sqlx.Tx, id int64) error {
	inUse, err := ClientHasOrders(tx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("DeleteClientInTx (ID: %d): %w", id, model.ErrInUse)
	}
	res, err := tx.Exec(tx.Rebind(`DELETE FROM clients WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete client with id %d: %w", id, err)
	}
	return expectOne(fmt.Sprintf("DeleteClientInTx (ID: %d)", id), res)
}

// UpsertClientByNameInTx updates the client with the same name or inserts a new one.
func UpsertClientByNameInTx(tx *sqlx.Tx, in model.ClientInput) (created bool, err error) {
	existing, err := GetClientByName(tx, in.Name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, UpdateClientInTx(tx, existing.ID, in)
	}
	if _, err := CreateClientInTx(tx, in); err != nil {
		return false, err
	}
	return true, nil
}

func ClientHasOrders(db DBTX, id int64) (bool, error) {
	var n int
	if err := db.Get(&n, db.Rebind(`SELECT COUNT(*) FROM orders WHERE client_id = ?`), id); err != nil {
		return false, fmt.Errorf("ClientHasOrders (ID: %d) failed: %w", id, err)
	}
	return n > 0, nil
}

func CountClients(db DBTX) (int, error) {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM clients`); err != nil {
		return 0, fmt.Errorf("CountClients failed: %w", err)
	}
	return n, nil
}
