package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Fixture is one event as returned by the catalog search.
type Fixture struct {
	ID       string `json:"id"`
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
	Date     string `json:"date"`
	Status   string `json:"status"`
	League   string `json:"league"`
}

var fixtureDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParsedDate reports the fixture date, or false when it cannot be read.
func (f Fixture) ParsedDate() (time.Time, bool) {
	raw := strings.TrimSpace(f.Date)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range fixtureDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f Fixture) DisplayName() string {
	return fmt.Sprintf("%s vs %s", f.HomeTeam, f.AwayTeam)
}

// DedupKey is the catalog id, or home-away-date when the id is absent.
func (f Fixture) DedupKey() string {
	if f.ID != "" {
		return f.ID
	}
	return strings.ToLower(fmt.Sprintf("%s-%s-%s", f.HomeTeam, f.AwayTeam, f.Date))
}

// DirectoryEntry is a vendor, counterparty or bank known to the ledger.
type DirectoryEntry struct {
	ID      string          `json:"id" db:"id"`
	Name    string          `json:"name" db:"name"`
	Balance decimal.Decimal `json:"balance" db:"balance"`
}

// Directories is the per-turn snapshot of known vendors and banks.
type Directories struct {
	Vendors []DirectoryEntry `json:"vendors"`
	Banks   []DirectoryEntry `json:"banks"`
}

// EntityCandidate is one possible match offered for disambiguation.
type EntityCandidate struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Score       float64    `json:"score"`
	Date        *time.Time `json:"date,omitempty"`
	Detail      string     `json:"detail,omitempty"`
}
