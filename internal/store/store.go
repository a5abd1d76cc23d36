package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/crosscheck/internal/config"
)

// ErrNoRows is returned by QueryValue when no row matches.
var ErrNoRows = errors.New("no matching row")

// validIdentifier matches table and column names that are safe to interpolate.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a single pinned database session.
type Store struct {
	db     *sql.DB
	conn   *sql.Conn
	driver string
}

// Open connects to the configured database and pins one connection.
//
// The pool is limited to a single open connection so nothing else can
// silently open a second session behind the pinned one.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, conn: conn, driver: cfg.Driver}
	if cfg.Driver == config.DriverSQLite {
		if err := s.applyPragmas(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}
	return s, nil
}

// Close releases the pinned connection and the pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var connErr error
	if s.conn != nil {
		connErr = s.conn.Close()
		s.conn = nil
	}
	dbErr := s.db.Close()
	s.db = nil
	return errors.Join(connErr, dbErr)
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Ping verifies the pinned connection is still usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Exec runs a statement on the pinned connection. Used for seeding.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := s.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report it for DDL; the statement still ran.
		return 0, nil
	}
	return n, nil
}

// ExecTx runs stmts in one transaction on the pinned connection. The first
// failing statement rolls back everything before it.
func (s *Store) ExecTx(ctx context.Context, stmts []string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Selector identifies rows in a table, optionally narrowed by equality
// conditions on columns. OrderBy, when set, makes "first row" mean the
// row with the lowest value in that column.
type Selector struct {
	Table   string
	Where   map[string]any
	OrderBy string
}

// QueryValue returns column from the first row matched by sel, rendered as
// a string. NULL renders as "". Returns ErrNoRows when nothing matches.
// Without sel.OrderBy the first row is whatever the engine returns first.
func (s *Store) QueryValue(ctx context.Context, sel Selector, column string) (string, error) {
	if !validIdentifier.MatchString(column) {
		return "", fmt.Errorf("invalid column name %q: must match pattern %s", column, validIdentifier.String())
	}
	query, args, err := s.buildQuery(fmt.Sprintf("SELECT %s", column), sel)
	if err != nil {
		return "", err
	}
	if sel.OrderBy != "" {
		if !validIdentifier.MatchString(sel.OrderBy) {
			return "", fmt.Errorf("invalid order column %q: must match pattern %s", sel.OrderBy, validIdentifier.String())
		}
		query += " ORDER BY " + sel.OrderBy
	}

	var raw any
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", query, ErrNoRows)
		}
		return "", fmt.Errorf("%s: %w", query, err)
	}
	return renderValue(raw), nil
}

// CountRows returns COUNT(*) over the rows matched by sel.
func (s *Store) CountRows(ctx context.Context, sel Selector) (int64, error) {
	query, args, err := s.buildQuery("SELECT COUNT(*)", sel)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", query, err)
	}
	return count, nil
}

// buildQuery appends FROM and a parameterized WHERE clause to head.
// Where keys are sorted so the generated SQL is deterministic.
func (s *Store) buildQuery(head string, sel Selector) (string, []any, error) {
	if !validIdentifier.MatchString(sel.Table) {
		return "", nil, fmt.Errorf("invalid table name %q: must match pattern %s", sel.Table, validIdentifier.String())
	}

	query := fmt.Sprintf("%s FROM %s", head, sel.Table)
	if len(sel.Where) == 0 {
		return query, nil, nil
	}

	keys := make([]string, 0, len(sel.Where))
	for k := range sel.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", key, s.placeholder(i+1)))
		args = append(args, sel.Where[key])
	}
	return query + " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (s *Store) placeholder(n int) string {
	if s.driver == config.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *Store) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// renderValue converts a scanned column value to the string an API would
// return for it.
func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// dataSourceName merges user and password into the connection string.
//
// SQLite has no credentials; they are ignored. For postgres, URL-style DSNs
// get the credentials as userinfo (unless already present) and key=value
// DSNs get user= and password= appended.
func dataSourceName(cfg config.DatabaseConfig) (string, error) {
	if cfg.URL == "" {
		return "", errors.New("database url is empty")
	}
	if cfg.Driver != config.DriverPostgres || (cfg.User == "" && cfg.Password == "") {
		return cfg.URL, nil
	}

	if strings.HasPrefix(cfg.URL, "postgres://") || strings.HasPrefix(cfg.URL, "postgresql://") {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "", fmt.Errorf("invalid database url: %w", err)
		}
		if u.User == nil {
			if cfg.Password != "" {
				u.User = url.UserPassword(cfg.User, cfg.Password)
			} else {
				u.User = url.User(cfg.User)
			}
		}
		return u.String(), nil
	}

	dsn := cfg.URL
	if cfg.User != "" && !strings.Contains(dsn, "user=") {
		dsn += " user=" + quoteDSNValue(cfg.User)
	}
	if cfg.Password != "" && !strings.Contains(dsn, "password=") {
		dsn += " password=" + quoteDSNValue(cfg.Password)
	}
	return dsn, nil
}

// quoteDSNValue quotes a libpq key=value value when it contains spaces or quotes.
func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
