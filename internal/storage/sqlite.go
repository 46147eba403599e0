package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"inkfinite/internal/domain"
	"inkfinite/internal/logger"
)

// DefaultPageName is the page every fresh board starts with.
const DefaultPageName = "Page 1"

// DB is the SQLite-backed repository. Records are stored as JSON blobs
// keyed by (board_id, record_id); page and shape sequences live in a
// doc_order row per board.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the database at path and runs pending migrations
// inside a single transaction.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	tx, err := conn.Begin()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("begin migration tx: %w", err)
	}
	if err := runMigrations(tx); err != nil {
		tx.Rollback()
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := tx.Commit(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("commit migrations: %w", err)
	}

	logger.For(logger.ComponentStorage).Debugf("opened database at %s", path)
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) ListBoards(ctx context.Context) ([]domain.Board, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	var boards []domain.Board
	for rows.Next() {
		var b domain.Board
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

func (db *DB) CreateBoard(ctx context.Context, name string) (domain.Board, error) {
	now := time.Now().UTC()
	board := domain.Board{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	doc := domain.NewDocument(uuid.NewString(), DefaultPageName)
	if err := db.writeBoard(ctx, board, doc); err != nil {
		return domain.Board{}, fmt.Errorf("create board: %w", err)
	}
	return board, nil
}

func (db *DB) LoadDoc(ctx context.Context, boardID string) (domain.Document, error) {
	if _, err := db.getBoard(ctx, boardID); err != nil {
		return domain.Document{}, err
	}

	doc := domain.EmptyDocument()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT data FROM pages WHERE board_id = ?`, boardID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load pages: %w", err)
	}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return domain.Document{}, fmt.Errorf("scan page: %w", err)
		}
		var pg domain.Page
		if err := json.Unmarshal(data, &pg); err != nil {
			rows.Close()
			return domain.Document{}, fmt.Errorf("decode page: %w", err)
		}
		doc.Pages[pg.ID] = pg
	}
	if err := closeRows(rows); err != nil {
		return domain.Document{}, fmt.Errorf("load pages: %w", err)
	}

	rows, err = db.conn.QueryContext(ctx,
		`SELECT data FROM shapes WHERE board_id = ?`, boardID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load shapes: %w", err)
	}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return domain.Document{}, fmt.Errorf("scan shape: %w", err)
		}
		sh, err := domain.UnmarshalShape(data)
		if err != nil {
			rows.Close()
			return domain.Document{}, fmt.Errorf("decode shape: %w", err)
		}
		doc.Shapes[sh.Common().ID] = sh
	}
	if err := closeRows(rows); err != nil {
		return domain.Document{}, fmt.Errorf("load shapes: %w", err)
	}

	rows, err = db.conn.QueryContext(ctx,
		`SELECT data FROM bindings WHERE board_id = ?`, boardID)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load bindings: %w", err)
	}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return domain.Document{}, fmt.Errorf("scan binding: %w", err)
		}
		var b domain.Binding
		if err := json.Unmarshal(data, &b); err != nil {
			rows.Close()
			return domain.Document{}, fmt.Errorf("decode binding: %w", err)
		}
		doc.Bindings[b.ID] = b
	}
	if err := closeRows(rows); err != nil {
		return domain.Document{}, fmt.Errorf("load bindings: %w", err)
	}

	order, err := db.readOrder(ctx, boardID)
	if err != nil {
		return domain.Document{}, err
	}

	file := domain.BoardFile{Doc: doc, Order: order}
	return file.Document(), nil
}

func (db *DB) ApplyDocPatch(ctx context.Context, boardID string, patch domain.Patch) error {
	if patch.IsEmpty() {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patch tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM boards WHERE id = ?`, boardID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
		}
		return fmt.Errorf("check board: %w", err)
	}

	for _, pg := range patch.Upserts.Pages {
		data, err := json.Marshal(pg.Record())
		if err != nil {
			return fmt.Errorf("encode page %s: %w", pg.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (board_id, id, data) VALUES (?, ?, ?)
			 ON CONFLICT (board_id, id) DO UPDATE SET data = excluded.data`,
			boardID, pg.ID, data); err != nil {
			return fmt.Errorf("upsert page %s: %w", pg.ID, err)
		}
	}
	for _, sh := range patch.Upserts.Shapes {
		id := sh.Common().ID
		data, err := domain.MarshalShape(sh)
		if err != nil {
			return fmt.Errorf("encode shape %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shapes (board_id, id, page_id, data) VALUES (?, ?, ?, ?)
			 ON CONFLICT (board_id, id) DO UPDATE SET page_id = excluded.page_id, data = excluded.data`,
			boardID, id, sh.Common().PageID, data); err != nil {
			return fmt.Errorf("upsert shape %s: %w", id, err)
		}
	}
	for _, b := range patch.Upserts.Bindings {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode binding %s: %w", b.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bindings (board_id, id, data) VALUES (?, ?, ?)
			 ON CONFLICT (board_id, id) DO UPDATE SET data = excluded.data`,
			boardID, b.ID, data); err != nil {
			return fmt.Errorf("upsert binding %s: %w", b.ID, err)
		}
	}

	for _, id := range patch.Deletes.PageIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pages WHERE board_id = ? AND id = ?`, boardID, id); err != nil {
			return fmt.Errorf("delete page %s: %w", id, err)
		}
	}
	for _, id := range patch.Deletes.ShapeIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM shapes WHERE board_id = ? AND id = ?`, boardID, id); err != nil {
			return fmt.Errorf("delete shape %s: %w", id, err)
		}
	}
	for _, id := range patch.Deletes.BindingIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bindings WHERE board_id = ? AND id = ?`, boardID, id); err != nil {
			return fmt.Errorf("delete binding %s: %w", id, err)
		}
	}

	if err := applyOrderTx(ctx, tx, boardID, patch); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE boards SET updated_at = ? WHERE id = ?`, time.Now().UTC(), boardID); err != nil {
		return fmt.Errorf("touch board: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patch: %w", err)
	}
	return nil
}

func (db *DB) ExportBoard(ctx context.Context, boardID string) (domain.BoardFile, error) {
	board, err := db.getBoard(ctx, boardID)
	if err != nil {
		return domain.BoardFile{}, err
	}
	doc, err := db.LoadDoc(ctx, boardID)
	if err != nil {
		return domain.BoardFile{}, err
	}
	return domain.NewBoardFile(board, doc), nil
}

// ImportBoard stores the snapshot under a fresh board id so an import can
// never collide with an existing board.
func (db *DB) ImportBoard(ctx context.Context, file domain.BoardFile) (domain.Board, error) {
	doc := file.Document()
	if err := domain.ValidateDoc(doc); err != nil {
		return domain.Board{}, fmt.Errorf("import board: %w", err)
	}
	name := file.Board.Name
	if name == "" {
		name = "Imported board"
	}
	now := time.Now().UTC()
	board := domain.Board{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := db.writeBoard(ctx, board, doc); err != nil {
		return domain.Board{}, fmt.Errorf("import board: %w", err)
	}
	return board, nil
}

func (db *DB) RenameBoard(ctx context.Context, boardID, name string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE boards SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), boardID)
	if err != nil {
		return fmt.Errorf("rename board: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename board: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	return nil
}

func (db *DB) DeleteBoard(ctx context.Context, boardID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"pages", "shapes", "bindings", "doc_order"} {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE board_id = ?`, boardID); err != nil {
			return fmt.Errorf("delete board %s from %s: %w", boardID, table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, boardID)
	if err != nil {
		return fmt.Errorf("delete board %s: %w", boardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board %s: %w", boardID, err)
	}
	if n == 0 {
		return fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (db *DB) getBoard(ctx context.Context, boardID string) (domain.Board, error) {
	var b domain.Board
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM boards WHERE id = ?`, boardID,
	).Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Board{}, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Board{}, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

// writeBoard inserts a board and its whole document in one transaction.
func (db *DB) writeBoard(ctx context.Context, board domain.Board, doc domain.Document) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO boards (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		board.ID, board.Name, board.CreatedAt, board.UpdatedAt); err != nil {
		return fmt.Errorf("insert board: %w", err)
	}

	for id, pg := range doc.Pages {
		data, err := json.Marshal(pg.Record())
		if err != nil {
			return fmt.Errorf("encode page %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pages (board_id, id, data) VALUES (?, ?, ?)`,
			board.ID, id, data); err != nil {
			return fmt.Errorf("insert page %s: %w", id, err)
		}
	}
	for id, sh := range doc.Shapes {
		data, err := domain.MarshalShape(sh)
		if err != nil {
			return fmt.Errorf("encode shape %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shapes (board_id, id, page_id, data) VALUES (?, ?, ?, ?)`,
			board.ID, id, sh.Common().PageID, data); err != nil {
			return fmt.Errorf("insert shape %s: %w", id, err)
		}
	}
	for id, b := range doc.Bindings {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode binding %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bindings (board_id, id, data) VALUES (?, ?, ?)`,
			board.ID, id, data); err != nil {
			return fmt.Errorf("insert binding %s: %w", id, err)
		}
	}

	order := domain.NewBoardFile(board, doc).Order
	if err := writeOrderTx(ctx, tx, board.ID, order); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	return nil
}

func (db *DB) readOrder(ctx context.Context, boardID string) (domain.DocOrder, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT page_ids, shape_order FROM doc_order WHERE board_id = ?`, boardID)
	return scanOrder(row)
}

func scanOrder(row *sql.Row) (domain.DocOrder, error) {
	order := domain.DocOrder{PageIDs: []string{}, ShapeOrder: map[string][]string{}}
	var pageJSON, shapeJSON []byte
	err := row.Scan(&pageJSON, &shapeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return order, nil
	}
	if err != nil {
		return order, fmt.Errorf("read order: %w", err)
	}
	if err := json.Unmarshal(pageJSON, &order.PageIDs); err != nil {
		return order, fmt.Errorf("decode page order: %w", err)
	}
	if err := json.Unmarshal(shapeJSON, &order.ShapeOrder); err != nil {
		return order, fmt.Errorf("decode shape order: %w", err)
	}
	return order, nil
}

// applyOrderTx folds a patch's deletions and order section into the stored
// doc_order row, mirroring how the patch applies to an in-memory document.
func applyOrderTx(ctx context.Context, tx *sql.Tx, boardID string, patch domain.Patch) error {
	if patch.Order == nil && len(patch.Deletes.PageIDs) == 0 {
		return nil
	}

	row := tx.QueryRowContext(ctx,
		`SELECT page_ids, shape_order FROM doc_order WHERE board_id = ?`, boardID)
	order, err := scanOrder(row)
	if err != nil {
		return err
	}

	for _, id := range patch.Deletes.PageIDs {
		order.PageIDs = lo.Without(order.PageIDs, id)
		delete(order.ShapeOrder, id)
	}
	if patch.Order != nil {
		if patch.Order.PageIDs != nil {
			order.PageIDs = patch.Order.PageIDs
		}
		for pid, seq := range patch.Order.ShapeOrder {
			order.ShapeOrder[pid] = seq
		}
	}
	for _, id := range patch.Deletes.PageIDs {
		delete(order.ShapeOrder, id)
	}

	return writeOrderTx(ctx, tx, boardID, order)
}

func writeOrderTx(ctx context.Context, tx *sql.Tx, boardID string, order domain.DocOrder) error {
	pageJSON, err := json.Marshal(order.PageIDs)
	if err != nil {
		return fmt.Errorf("encode page order: %w", err)
	}
	shapeJSON, err := json.Marshal(order.ShapeOrder)
	if err != nil {
		return fmt.Errorf("encode shape order: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO doc_order (board_id, page_ids, shape_order) VALUES (?, ?, ?)
		 ON CONFLICT (board_id) DO UPDATE SET page_ids = excluded.page_ids, shape_order = excluded.shape_order`,
		boardID, pageJSON, shapeJSON); err != nil {
		return fmt.Errorf("write order: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
