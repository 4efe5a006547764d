// Package export loads a cleaned or master table into Postgres or ClickHouse.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"

	"github.com/KaramelBytes/tractmobility-cli/internal/dataset"
	"github.com/KaramelBytes/tractmobility-cli/internal/logger"
	"github.com/KaramelBytes/tractmobility-cli/internal/table"
)

const (
	pg = "postgres"
	ch = "clickhouse"
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect holds the statement templates for one database.
type Dialect struct {
	name     string
	quote    string
	dropIf   string
	create   string
	textType string
	numType  string
	notNull  string
}

var dialects = map[string]Dialect{
	pg: {
		name:     pg,
		quote:    `"`,
		dropIf:   "DROP TABLE IF EXISTS ?TableName",
		create:   "CREATE TABLE ?TableName (?fields, PRIMARY KEY (?OrderBy))",
		textType: "TEXT",
		numType:  "DOUBLE PRECISION",
		notNull:  " NOT NULL",
	},
	ch: {
		name:     ch,
		quote:    "`",
		dropIf:   "DROP TABLE IF EXISTS ?TableName",
		create:   "CREATE TABLE ?TableName (?fields) ENGINE = MergeTree() ORDER BY ?OrderBy",
		textType: "String",
		numType:  "Nullable(Float64)",
	},
}

// NewDialect returns the dialect for "postgres" or "clickhouse".
func NewDialect(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported export dialect %q (use postgres or clickhouse)", name)
	}
	return d, nil
}

func (d Dialect) Name() string { return d.name }

// Quote quotes an identifier. Only plain identifiers are accepted.
func (d Dialect) Quote(ident string) (string, error) {
	if !identRE.MatchString(ident) {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return d.quote + ident + d.quote, nil
}

// DropStatement builds DROP TABLE IF EXISTS for tableName.
func (d Dialect) DropStatement(tableName string) (string, error) {
	q, err := d.Quote(tableName)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(d.dropIf, "?TableName", q), nil
}

// CreateStatement builds CREATE TABLE for cols. text[i] marks a text
// column; every other column is a nullable float. The first column is the key.
func (d Dialect) CreateStatement(tableName string, cols []string, text []bool) (string, error) {
	if len(cols) == 0 || len(cols) != len(text) {
		return "", fmt.Errorf("create %s: need one type per column", tableName)
	}
	q, err := d.Quote(tableName)
	if err != nil {
		return "", err
	}
	flds := make([]string, len(cols))
	for i, c := range cols {
		qc, err := d.Quote(c)
		if err != nil {
			return "", err
		}
		typ := d.numType
		if text[i] {
			typ = d.textType
			if i == 0 {
				typ += d.notNull
			}
		}
		flds[i] = qc + " " + typ
	}
	key, _ := d.Quote(cols[0])
	create := strings.ReplaceAll(d.create, "?TableName", q)
	create = strings.Replace(create, "?OrderBy", key, 1)
	create = strings.Replace(create, "?fields", strings.Join(flds, ", "), 1)
	return create, nil
}

// InsertStatement builds a single-row parameterized INSERT.
func (d Dialect) InsertStatement(tableName string, cols []string) (string, error) {
	q, err := d.Quote(tableName)
	if err != nil {
		return "", err
	}
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		if names[i], err = d.Quote(c); err != nil {
			return "", err
		}
		if d.name == pg {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", q, strings.Join(names, ", "), strings.Join(marks, ", ")), nil
}

// Open connects to the database named by dsn and pings it.
func (d Dialect) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	var db *sql.DB
	switch d.name {
	case pg:
		var err error
		if db, err = sql.Open("postgres", dsn); err != nil {
			return nil, err
		}
	case ch:
		opts, err := clickhouse.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
		}
		if opts.DialTimeout == 0 {
			opts.DialTimeout = 5 * time.Second
		}
		if opts.Compression == nil {
			opts.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
		}
		db = clickhouse.OpenDB(opts)
	default:
		return nil, fmt.Errorf("unsupported export dialect %q", d.name)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", d.name, err)
	}
	return db, nil
}

// TextColumns marks the key and name columns, plus any column holding a
// value that does not parse as a number, as text.
func TextColumns(t *table.Table) []bool {
	text := make([]bool, len(t.Columns))
	for j, c := range t.Columns {
		if c == dataset.KeyColumn || c == dataset.NameColumn || c == "station_id" || c == "station_name" {
			text[j] = true
			continue
		}
		for _, r := range t.Rows {
			if strings.TrimSpace(r[j]) == "" {
				continue
			}
			if _, ok := table.ParseFloat(r[j]); !ok {
				text[j] = true
				break
			}
		}
	}
	return text
}

// RowArgs converts row i into driver arguments; null numeric cells become nil.
func RowArgs(t *table.Table, i int, text []bool) []any {
	args := make([]any, len(t.Columns))
	for j, cell := range t.Rows[i] {
		if text[j] {
			args[j] = cell
			continue
		}
		if v, ok := table.ParseFloat(cell); ok {
			args[j] = v
		} else {
			args[j] = nil
		}
	}
	return args
}

// Load replaces tableName with the contents of t in one transaction.
// It returns the number of rows inserted.
func Load(ctx context.Context, db *sql.DB, d Dialect, tableName string, t *table.Table, log *logger.Logger) (int, error) {
	log = logger.OrNop(log)
	text := TextColumns(t)
	drop, err := d.DropStatement(tableName)
	if err != nil {
		return 0, err
	}
	create, err := d.CreateStatement(tableName, t.Columns, text)
	if err != nil {
		return 0, err
	}
	insert, err := d.InsertStatement(tableName, t.Columns)
	if err != nil {
		return 0, err
	}

	// DDL runs outside the transaction; ClickHouse has no transactional DDL.
	if _, err := db.ExecContext(ctx, drop); err != nil {
		return 0, fmt.Errorf("drop %s: %w", tableName, err)
	}
	if _, err := db.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create %s: %w", tableName, err)
	}
	log.Debug("export table created", "dialect", d.name, "table", tableName, "columns", len(t.Columns))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range t.Rows {
		if _, err := stmt.ExecContext(ctx, RowArgs(t, i, text)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", tableName, err)
	}
	log.Info("export complete", "dialect", d.name, "table", tableName, "rows", t.Len())
	return t.Len(), nil
}
