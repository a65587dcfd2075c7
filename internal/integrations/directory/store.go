package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger-assistant/internal/models"
)

var ErrDirectoryLoadFailed = errors.New("DIRECTORY_LOAD_FAILED")

const (
	listVendorsQuery = `SELECT id, name, balance FROM counterparties ORDER BY name`
	listBanksQuery   = `SELECT id, name, balance FROM banks ORDER BY name`
)

// Store reads vendors and banks from Postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListVendors(ctx context.Context) ([]models.DirectoryEntry, error) {
	return s.list(ctx, listVendorsQuery)
}

func (s *Store) ListBanks(ctx context.Context) ([]models.DirectoryEntry, error) {
	return s.list(ctx, listBanksQuery)
}

// Load returns both lists as one snapshot.
func (s *Store) Load(ctx context.Context) (models.Directories, error) {
	vendors, err := s.ListVendors(ctx)
	if err != nil {
		return models.Directories{}, err
	}
	banks, err := s.ListBanks(ctx)
	if err != nil {
		return models.Directories{}, err
	}
	return models.Directories{Vendors: vendors, Banks: banks}, nil
}

func (s *Store) list(ctx context.Context, query string) ([]models.DirectoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryLoadFailed, err)
	}
	defer rows.Close()

	entries := []models.DirectoryEntry{}
	for rows.Next() {
		var e models.DirectoryEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Balance); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrDirectoryLoadFailed, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryLoadFailed, err)
	}
	return entries, nil
}
