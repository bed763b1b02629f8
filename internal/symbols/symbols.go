// Package symbols resolves compact instrument references against the local
// symbol master, a SQLite database mapping each instrument to its
// per-broker identifiers and exchange lot size.
//
// A reference is either a plain trading symbol ("RELIANCE") or the packed
// form "EXCHANGE|SYMBOL|DHANID|MOTOKEN", which bypasses the lookup and is
// enriched with the lot size when the master knows the instrument.
package symbols

import (
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/copytrade/brokerhub/internal/domain"
)

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open symbol master")
	}
	// SQLite behaves best on a single connection.
	db.SetMaxOpenConns(1)
	s := &DB{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS symbols (
	symbol        TEXT NOT NULL,
	exchange      TEXT NOT NULL,
	dhan_id       TEXT NOT NULL DEFAULT '',
	motilal_token TEXT NOT NULL DEFAULT '',
	min_lot       INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (symbol, exchange)
);
CREATE INDEX IF NOT EXISTS idx_symbols_motilal ON symbols(motilal_token);
`)
	return errors.Wrap(err, "migrate symbol master")
}

func (s *DB) Close() error { return s.db.Close() }

// Resolve parses or looks up one instrument reference.
func (s *DB) Resolve(ref string) (*domain.SymbolRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("empty symbol reference")
	}

	if strings.Contains(ref, "|") {
		return s.resolvePacked(ref)
	}

	row := s.db.QueryRow(
		`SELECT symbol, exchange, dhan_id, motilal_token, min_lot FROM symbols WHERE symbol = ? LIMIT 1`,
		strings.ToUpper(ref))
	out := &domain.SymbolRef{}
	err := row.Scan(&out.Symbol, &out.Exchange, &out.DhanID, &out.MotilalToken, &out.MinLot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Errorf("unknown symbol %q", ref)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lookup symbol %q", ref)
	}
	return out, nil
}

func (s *DB) resolvePacked(ref string) (*domain.SymbolRef, error) {
	parts := strings.Split(ref, "|")
	if len(parts) < 4 {
		return nil, errors.Errorf("malformed symbol reference %q", ref)
	}
	out := &domain.SymbolRef{
		Exchange:     strings.ToUpper(strings.TrimSpace(parts[0])),
		Symbol:       strings.ToUpper(strings.TrimSpace(parts[1])),
		DhanID:       strings.TrimSpace(parts[2]),
		MotilalToken: strings.TrimSpace(parts[3]),
		MinLot:       1,
	}
	// The packed form carries no lot size; take it from the master if the
	// instrument is known there.
	if out.MotilalToken != "" {
		if ml := s.MinLot(out.MotilalToken); ml > 0 {
			out.MinLot = ml
		}
	}
	return out, nil
}

// MinLot returns the lot size for a motilal token, 0 when unknown.
func (s *DB) MinLot(motilalToken string) int {
	if strings.TrimSpace(motilalToken) == "" {
		return 0
	}
	var minLot int
	err := s.db.QueryRow(
		`SELECT min_lot FROM symbols WHERE motilal_token = ? LIMIT 1`, motilalToken).Scan(&minLot)
	if err != nil {
		return 0
	}
	return minLot
}

// Put upserts one instrument into the master.
func (s *DB) Put(ref *domain.SymbolRef) error {
	_, err := s.db.Exec(`
INSERT INTO symbols (symbol, exchange, dhan_id, motilal_token, min_lot)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(symbol, exchange) DO UPDATE SET
	dhan_id = excluded.dhan_id,
	motilal_token = excluded.motilal_token,
	min_lot = excluded.min_lot`,
		strings.ToUpper(ref.Symbol), strings.ToUpper(ref.Exchange),
		ref.DhanID, ref.MotilalToken, ref.MinLot)
	return errors.Wrapf(err, "upsert symbol %s", ref.Symbol)
}
