package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alecthomas/types/optional"
	_ "github.com/go-sql-driver/mysql" // SQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // SQL driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQL driver

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Dialect describes how a SQL backend names its driver, creates the items
// table and reports generated IDs.
type Dialect struct {
	Name   string
	Driver string
	Schema string
	// Returning is true when the backend reports the generated ID through
	// INSERT ... RETURNING instead of LastInsertId.
	Returning bool
	// MaxOpenConns limits the pool size; zero means unlimited.
	MaxOpenConns int
}

// Supported SQL dialects.
var (
	SQLite = Dialect{
		Name:   DriverSQLite,
		Driver: "sqlite3",
		Schema: `CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description VARCHAR(500)
)`,
		// A single connection serialises writers and keeps ":memory:" databases alive.
		MaxOpenConns: 1,
	}

	Postgres = Dialect{
		Name:   DriverPostgres,
		Driver: "pgx",
		Schema: `CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description VARCHAR(500)
)`,
		Returning: true,
	}

	MySQL = Dialect{
		Name:   DriverMySQL,
		Driver: "mysql",
		Schema: `CREATE TABLE IF NOT EXISTS items (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name TEXT NOT NULL,
	description VARCHAR(500) NULL
)`,
	}
)

// itemRow is the database representation of an item.
type itemRow struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
}

func (r itemRow) item() model.Item {
	item := model.Item{ID: r.ID, Name: r.Name}
	if r.Description.Valid {
		item.Description = optional.Some(r.Description.String)
	}
	return item
}

func nullDescription(description optional.Option[string]) sql.NullString {
	d, ok := description.Get()
	return sql.NullString{String: d, Valid: ok}
}

// SQLStore implements Store on top of a relational database.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore connects to the database and ensures the items table exists.
func NewSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect.Name, err)
	}

	if dialect.MaxOpenConns > 0 {
		db.SetMaxOpenConns(dialect.MaxOpenConns)
	}

	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create items table: %w", err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

// Insert adds a new item and returns it with the database-generated ID.
func (s *SQLStore) Insert(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, fmt.Errorf("insert item: %w", ErrNilItem)
	}

	const insert = `INSERT INTO items (name, description) VALUES (?, ?)`
	description := nullDescription(item.Description)

	var id int64
	if s.dialect.Returning {
		err := s.db.QueryRowxContext(ctx, s.db.Rebind(insert+` RETURNING id`), item.Name, description).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, s.db.Rebind(insert), item.Name, description)
		if err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("insert item: last insert id: %w", err)
		}
	}

	return &model.Item{
		ID:          id,
		Name:        item.Name,
		Description: item.Description,
	}, nil
}

// FindByID retrieves an item by its ID.
func (s *SQLStore) FindByID(ctx context.Context, id int64) (optional.Option[model.Item], error) {
	if err := validID(id); err != nil {
		return optional.None[model.Item](), err
	}

	var row itemRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, name, description FROM items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return optional.None[model.Item](), nil
	} else if err != nil {
		return optional.None[model.Item](), fmt.Errorf("find item: %w", err)
	}

	return optional.Some(row.item()), nil
}

// FindAll returns all items ordered by ID, which is insertion order.
func (s *SQLStore) FindAll(ctx context.Context) ([]model.Item, error) {
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, description FROM items ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items := make([]model.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.item())
	}

	return items, nil
}

// ExistsByID reports whether an item with the given ID is stored.
func (s *SQLStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	if err := validID(id); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(`SELECT EXISTS (SELECT 1 FROM items WHERE id = ?)`), id)
	if err != nil {
		return false, fmt.Errorf("exists item: %w", err)
	}

	return exists, nil
}

// DeleteByID removes an item by its ID.
func (s *SQLStore) DeleteByID(ctx context.Context, id int64) error {
	if err := validID(id); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Update overwrites the name and description of an existing item.
func (s *SQLStore) Update(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	if err := validID(item.ID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE items SET name = ?, description = ? WHERE id = ?`),
		item.Name, nullDescription(item.Description), item.ID)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update item: rows affected: %w", err)
	}

	// MySQL reports zero affected rows when the values did not change.
	if affected == 0 {
		exists, err := s.ExistsByID(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
	}

	updated := *item
	return &updated, nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.dialect.Name, err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
