// Package storage implements the relational goal store and the chat identity
// store on top of sqlx. Queries are written with ? placeholders and rebound
// for the connected driver.
package storage

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a lookup or conditional update matches no row.
var ErrNotFound = errors.New("storage: not found")

func requireDB(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("storage: db is nil")
	}
	return nil
}
