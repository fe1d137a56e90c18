// Package journal implements a durable replication sink: every semantic
// mutation of the link graph is appended to a SQLite journal in emission
// order, so a downstream replayer can reproduce the mutation stream.
//
// Implements: docs/ARCHITECTURE § Replication Journal.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/starfinanz/realm-core/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Event names as stored in the journal.
const (
	EventSetLink           = "set_link"
	EventListInsert        = "link_list_insert"
	EventListSet           = "link_list_set"
	EventListErase         = "link_list_erase"
	EventListNullify       = "link_list_nullify"
	EventListMove          = "link_list_move"
	EventListSwap          = "link_list_swap"
	EventListClear         = "link_list_clear"
	EventListViewDestroyed = "list_view_destroyed"
)

// Journal records replication events for one group into a SQLite database.
// The sink is synchronous and never fails the mutation that produced an
// event; the first write error is latched and reported by Err.
type Journal struct {
	db      *sql.DB
	session string
	lastErr error
}

var _ types.Replication = (*Journal)(nil)

// Open creates or opens the journal database at path and starts a new
// session for groupID.
func Open(path, groupID string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}

	session := generateSessionID()
	_, err = db.Exec(
		"INSERT INTO sessions (session_id, group_id, started_at) VALUES (?, ?, ?)",
		session, groupID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("starting journal session: %w", err)
	}
	return &Journal{db: db, session: session}, nil
}

// generateSessionID generates a new UUID v7 for journal sessions.
func generateSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// Session returns the current session ID.
func (j *Journal) Session() string { return j.session }

// Err returns the first write error encountered, if any.
func (j *Journal) Err() error { return j.lastErr }

// Close releases the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func (j *Journal) append(event string, table types.TableID, col types.ColID, row types.RowID, position, target, aux any) {
	if j.db == nil {
		return
	}
	_, err := j.db.Exec(
		"INSERT INTO events (session_id, event, table_id, col_id, row_id, position, target, aux, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		j.session, event, int(table), int(col), int(row), position, target, aux,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil && j.lastErr == nil {
		j.lastErr = fmt.Errorf("appending %s event: %w", event, err)
	}
}

// SetLink implements types.Replication.
func (j *Journal) SetLink(table types.TableID, col types.ColID, row, target types.RowID) {
	j.append(EventSetLink, table, col, row, nil, int(target), nil)
}

// LinkListInsert implements types.Replication.
func (j *Journal) LinkListInsert(list types.ListRef, ndx int, target types.RowID) {
	j.append(EventListInsert, list.Table, list.Col, list.Row, ndx, int(target), nil)
}

// LinkListSet implements types.Replication.
func (j *Journal) LinkListSet(list types.ListRef, ndx int, target types.RowID) {
	j.append(EventListSet, list.Table, list.Col, list.Row, ndx, int(target), nil)
}

// LinkListErase implements types.Replication.
func (j *Journal) LinkListErase(list types.ListRef, ndx int) {
	j.append(EventListErase, list.Table, list.Col, list.Row, ndx, nil, nil)
}

// LinkListNullify implements types.Replication.
func (j *Journal) LinkListNullify(list types.ListRef, ndx int) {
	j.append(EventListNullify, list.Table, list.Col, list.Row, ndx, nil, nil)
}

// LinkListMove implements types.Replication.
func (j *Journal) LinkListMove(list types.ListRef, from, to int) {
	j.append(EventListMove, list.Table, list.Col, list.Row, from, nil, to)
}

// LinkListSwap implements types.Replication.
func (j *Journal) LinkListSwap(list types.ListRef, ndx1, ndx2 int) {
	j.append(EventListSwap, list.Table, list.Col, list.Row, ndx1, nil, ndx2)
}

// LinkListClear implements types.Replication.
func (j *Journal) LinkListClear(list types.ListRef) {
	j.append(EventListClear, list.Table, list.Col, list.Row, nil, nil, nil)
}

// OnListViewDestroyed implements types.Replication.
func (j *Journal) OnListViewDestroyed(list types.ListRef) {
	j.append(EventListViewDestroyed, list.Table, list.Col, list.Row, nil, nil, nil)
}

// Event is one journal row, hydrated for inspection and replay.
type Event struct {
	Seq      int64
	Event    string
	Table    types.TableID
	Col      types.ColID
	Row      types.RowID
	Position sql.NullInt64
	Target   sql.NullInt64
	Aux      sql.NullInt64
}

// Events returns the session's events in emission order.
func (j *Journal) Events() ([]Event, error) {
	rows, err := j.db.Query(
		"SELECT seq, event, table_id, col_id, row_id, position, target, aux FROM events WHERE session_id = ? ORDER BY seq",
		j.session,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var table, col, row int
		if err := rows.Scan(&e.Seq, &e.Event, &table, &col, &row, &e.Position, &e.Target, &e.Aux); err != nil {
			return nil, fmt.Errorf("hydrating event: %w", err)
		}
		e.Table = types.TableID(table)
		e.Col = types.ColID(col)
		e.Row = types.RowID(row)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}
