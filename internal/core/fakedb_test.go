package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	db "github.com/JonMunkholm/custload/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// ============================================================================
// In-memory Postgres
// ============================================================================

// fakeTables is the committed content of the fake database.
type fakeTables struct {
	addresses []db.Address
	customers []db.Customer
	uploads   []db.Upload
	nextAddr  int64
	nextCust  int64
}

func (t fakeTables) clone() fakeTables {
	c := t
	c.addresses = append([]db.Address(nil), t.addresses...)
	c.customers = append([]db.Customer(nil), t.customers...)
	c.uploads = append([]db.Upload(nil), t.uploads...)
	return c
}

// fakeDB answers the statements in the database package from memory. Each
// transaction works on a copy of the tables that replaces them on commit.
type fakeDB struct {
	mu     sync.Mutex
	tables fakeTables

	begins, commits, rollbacks, locks int

	// insertCustomerErr, when set, fails the insert of a customer with the
	// given last name.
	insertCustomerErr map[string]error
}

func newFakeDB() *fakeDB {
	return &fakeDB{}
}

func (d *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.begins++
	return &fakeTx{db: d, tables: d.tables.clone()}, nil
}

func (d *fakeDB) Ping(ctx context.Context) error { return nil }

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exec(&d.tables, sql, args)
}

func (d *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query(&d.tables, sql, args)
}

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queryRow(&d.tables, sql, args)
}

func (d *fakeDB) exec(t *fakeTables, sql string, args []interface{}) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "LOCK TABLE addresses"):
		d.locks++
		return pgconn.NewCommandTag("LOCK TABLE"), nil
	case strings.Contains(sql, "INSERT INTO uploads"):
		t.uploads = append(t.uploads, db.Upload{
			ID:               args[0].(pgtype.UUID),
			FileName:         args[1].(string),
			Format:           args[2].(pgtype.Text),
			Status:           args[3].(string),
			Customers:        args[4].(int32),
			AddressesCreated: args[5].(int32),
			Error:            args[6].(pgtype.Text),
			CreatedAt:        pgtype.Timestamptz{Time: time.Now(), Valid: true},
		})
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "DELETE FROM customers"):
		t.customers = nil
		return pgconn.NewCommandTag("DELETE"), nil
	case strings.Contains(sql, "DELETE FROM addresses"):
		for _, c := range t.customers {
			if c.AddressID != 0 {
				return pgconn.CommandTag{}, errors.New("addresses still referenced by customers")
			}
		}
		t.addresses = nil
		return pgconn.NewCommandTag("DELETE"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("fakeDB: unexpected exec %q", sql)
}

func (d *fakeDB) queryRow(t *fakeTables, sql string, args []interface{}) pgx.Row {
	switch {
	case strings.Contains(sql, "COUNT(*) FROM addresses"):
		return fakeRow{vals: []any{int64(len(t.addresses))}}
	case strings.Contains(sql, "COUNT(*) FROM customers"):
		return fakeRow{vals: []any{int64(len(t.customers))}}

	case strings.Contains(sql, "INSERT INTO addresses"):
		street, postcode := args[0].(string), args[1].(string)
		if _, ok := t.addressAt(street, postcode); ok {
			return fakeRow{err: &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}}
		}
		t.nextAddr++
		a := db.Address{ID: t.nextAddr, Street: street, Postcode: postcode, CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true}}
		t.addresses = append(t.addresses, a)
		return addressRow(a)

	case strings.Contains(sql, "WHERE street"):
		a, ok := t.addressAt(args[0].(string), args[1].(string))
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return addressRow(a)

	case strings.Contains(sql, "INSERT INTO customers"):
		c := db.Customer{
			FirstName:   args[0].(string),
			LastName:    args[1].(string),
			AddressID:   args[2].(int64),
			Phone:       args[3].(string),
			CreditLimit: args[4].(pgtype.Numeric),
			Birthday:    args[5].(pgtype.Date),
			Source:      args[6].(string),
		}
		if err := d.insertCustomerErr[c.LastName]; err != nil {
			return fakeRow{err: err}
		}
		if _, ok := t.addressByID(c.AddressID); !ok {
			return fakeRow{err: &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}}
		}
		t.nextCust++
		c.ID = t.nextCust
		t.customers = append(t.customers, c)
		return fakeRow{vals: []any{c.ID}}

	case strings.Contains(sql, "WHERE c.id"):
		id := args[0].(int64)
		for _, c := range t.customers {
			if c.ID == id {
				return fakeRow{vals: t.joined(c)}
			}
		}
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{err: fmt.Errorf("fakeDB: unexpected query row %q", sql)}
}

func (d *fakeDB) query(t *fakeTables, sql string, args []interface{}) (pgx.Rows, error) {
	var rows [][]any
	switch {
	case strings.Contains(sql, "FROM customers c"):
		for _, c := range t.customers {
			rows = append(rows, t.joined(c))
		}
	case strings.Contains(sql, "FROM addresses"):
		for _, a := range t.addresses {
			rows = append(rows, addressRow(a).vals)
		}
	case strings.Contains(sql, "FROM uploads"):
		limit := int(args[0].(int32))
		for i := len(t.uploads) - 1; i >= 0 && len(rows) < limit; i-- {
			u := t.uploads[i]
			rows = append(rows, []any{u.ID, u.FileName, u.Format, u.Status, u.Customers, u.AddressesCreated, u.Error, u.CreatedAt})
		}
	default:
		return nil, fmt.Errorf("fakeDB: unexpected query %q", sql)
	}
	return &fakeRows{rows: rows, pos: -1}, nil
}

func (t *fakeTables) addressAt(street, postcode string) (db.Address, bool) {
	for _, a := range t.addresses {
		if a.Street == street && a.Postcode == postcode {
			return a, true
		}
	}
	return db.Address{}, false
}

func (t *fakeTables) addressByID(id int64) (db.Address, bool) {
	for _, a := range t.addresses {
		if a.ID == id {
			return a, true
		}
	}
	return db.Address{}, false
}

// joined returns the columns of the customers-join-addresses queries.
func (t *fakeTables) joined(c db.Customer) []any {
	a, _ := t.addressByID(c.AddressID)
	return []any{c.ID, c.FirstName, c.LastName, c.AddressID, c.Phone, c.CreditLimit, c.Birthday, c.Source, c.CreatedAt, a.Street, a.Postcode}
}

func addressRow(a db.Address) fakeRow {
	return fakeRow{vals: []any{a.ID, a.Street, a.Postcode, a.CreatedAt}}
}

// ============================================================================
// Transactions, rows
// ============================================================================

// fakeTx embeds pgx.Tx for the methods the queries never call.
type fakeTx struct {
	pgx.Tx
	db     *fakeDB
	tables fakeTables
	closed bool
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.tables = tx.tables
	tx.db.commits++
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.db.rollbacks++
	return nil
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	return tx.db.exec(&tx.tables, sql, args)
}

func (tx *fakeTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	return tx.db.query(&tx.tables, sql, args)
}

func (tx *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	return tx.db.queryRow(&tx.tables, sql, args)
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

// fakeRows embeds pgx.Rows for the methods the queries never call.
type fakeRows struct {
	pgx.Rows
	rows [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error { return scanInto(r.rows[r.pos], dest) }
func (r *fakeRows) Err() error             { return nil }
func (r *fakeRows) Close()                 {}

func scanInto(vals, dest []any) error {
	if len(vals) != len(dest) {
		return fmt.Errorf("fakeDB: scan %d values into %d destinations", len(vals), len(dest))
	}
	for i, v := range vals {
		target := reflect.ValueOf(dest[i]).Elem()
		value := reflect.ValueOf(v)
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("fakeDB: column %d is %s, destination is %s", i, value.Type(), target.Type())
		}
		target.Set(value)
	}
	return nil
}
