package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// migration is one step in the fixed, ordered schema history. Applied ids
// are recorded in the migrations ledger so re-running the list is a no-op.
type migration struct {
	id    string
	apply func(tx *sql.Tx) error
}

var migrations = []migration{
	{id: "0001_base_schema", apply: migrateBaseSchema},
	{id: "0002_backfill_board_timestamps", apply: migrateBackfillBoardTimestamps},
	{id: "0003_seed_missing_order", apply: migrateSeedMissingOrder},
}

// runMigrations applies every migration whose id is not yet in the ledger,
// in list order, inside the caller's transaction.
func runMigrations(tx *sql.Tx) error {
	if _, err := tx.Exec(`CREATE TABLE IF NOT EXISTS migrations (
		id TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := map[string]bool{}
	rows, err := tx.Query(`SELECT id FROM migrations`)
	if err != nil {
		return fmt.Errorf("read migration ledger: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration id: %w", err)
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("read migration ledger: %w", err)
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.id] {
			continue
		}
		if err := m.apply(tx); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.id, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO migrations (id, applied_at) VALUES (?, ?)`,
			m.id, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", m.id, err)
		}
	}
	return nil
}

func migrateBaseSchema(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS boards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS pages (
			board_id TEXT NOT NULL REFERENCES boards(id),
			id TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (board_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS shapes (
			board_id TEXT NOT NULL REFERENCES boards(id),
			id TEXT NOT NULL,
			page_id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (board_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS bindings (
			board_id TEXT NOT NULL REFERENCES boards(id),
			id TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}',
			PRIMARY KEY (board_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS doc_order (
			board_id TEXT PRIMARY KEY REFERENCES boards(id),
			page_ids TEXT NOT NULL DEFAULT '[]',
			shape_order TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shapes_board_page ON shapes(board_id, page_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bindings_board ON bindings(board_id)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("base schema: %w", err)
		}
	}
	return nil
}

func migrateBackfillBoardTimestamps(tx *sql.Tx) error {
	if _, err := tx.Exec(
		`UPDATE boards SET created_at = CURRENT_TIMESTAMP WHERE created_at IS NULL`,
	); err != nil {
		return fmt.Errorf("backfill created_at: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE boards SET updated_at = COALESCE(created_at, CURRENT_TIMESTAMP) WHERE updated_at IS NULL`,
	); err != nil {
		return fmt.Errorf("backfill updated_at: %w", err)
	}
	return nil
}

// migrateSeedMissingOrder synthesizes a doc_order row for boards written
// before ordering existed: pages sorted by id, each page's shapes sorted
// by id.
func migrateSeedMissingOrder(tx *sql.Tx) error {
	rows, err := tx.Query(
		`SELECT b.id FROM boards b LEFT JOIN doc_order o ON o.board_id = b.id WHERE o.board_id IS NULL`,
	)
	if err != nil {
		return fmt.Errorf("find boards without order: %w", err)
	}
	var boardIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan board id: %w", err)
		}
		boardIDs = append(boardIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("find boards without order: %w", err)
	}
	rows.Close()

	for _, boardID := range boardIDs {
		pageIDs, shapeOrder, err := synthesizeOrder(tx, boardID)
		if err != nil {
			return err
		}
		pageJSON, err := json.Marshal(pageIDs)
		if err != nil {
			return fmt.Errorf("marshal page order: %w", err)
		}
		shapeJSON, err := json.Marshal(shapeOrder)
		if err != nil {
			return fmt.Errorf("marshal shape order: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO doc_order (board_id, page_ids, shape_order) VALUES (?, ?, ?)`,
			boardID, pageJSON, shapeJSON,
		); err != nil {
			return fmt.Errorf("seed order for board %s: %w", boardID, err)
		}
	}
	return nil
}

func synthesizeOrder(tx *sql.Tx, boardID string) ([]string, map[string][]string, error) {
	pageIDs := []string{}
	shapeOrder := map[string][]string{}

	rows, err := tx.Query(`SELECT id FROM pages WHERE board_id = ?`, boardID)
	if err != nil {
		return nil, nil, fmt.Errorf("list pages for board %s: %w", boardID, err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan page id: %w", err)
		}
		pageIDs = append(pageIDs, id)
		shapeOrder[id] = []string{}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("list pages for board %s: %w", boardID, err)
	}
	rows.Close()
	sort.Strings(pageIDs)

	rows, err = tx.Query(`SELECT id, page_id FROM shapes WHERE board_id = ?`, boardID)
	if err != nil {
		return nil, nil, fmt.Errorf("list shapes for board %s: %w", boardID, err)
	}
	for rows.Next() {
		var id, pageID string
		if err := rows.Scan(&id, &pageID); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan shape id: %w", err)
		}
		if _, ok := shapeOrder[pageID]; ok {
			shapeOrder[pageID] = append(shapeOrder[pageID], id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("list shapes for board %s: %w", boardID, err)
	}
	rows.Close()
	for _, seq := range shapeOrder {
		sort.Strings(seq)
	}

	return pageIDs, shapeOrder, nil
}
