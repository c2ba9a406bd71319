package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertCustomer = `
INSERT INTO customers (first_name, last_name, address_id, phone, credit_limit, birthday, source)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`

type InsertCustomerParams struct {
	FirstName   string
	LastName    string
	AddressID   int64
	Phone       string
	CreditLimit pgtype.Numeric
	Birthday    pgtype.Date
	Source      string
}

func (q *Queries) InsertCustomer(ctx context.Context, arg InsertCustomerParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertCustomer,
		arg.FirstName,
		arg.LastName,
		arg.AddressID,
		arg.Phone,
		arg.CreditLimit,
		arg.Birthday,
		arg.Source,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const customerWithAddressColumns = `
SELECT c.id, c.first_name, c.last_name, c.address_id, c.phone, c.credit_limit,
       c.birthday, c.source, c.created_at, a.street, a.postcode
FROM customers c
JOIN addresses a ON a.id = c.address_id
`

const listCustomers = customerWithAddressColumns + `ORDER BY c.id`

func (q *Queries) ListCustomers(ctx context.Context) ([]CustomerWithAddress, error) {
	rows, err := q.db.Query(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CustomerWithAddress
	for rows.Next() {
		var i CustomerWithAddress
		if err := scanCustomerWithAddress(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCustomerByID = customerWithAddressColumns + `WHERE c.id = $1`

func (q *Queries) GetCustomerByID(ctx context.Context, id int64) (CustomerWithAddress, error) {
	row := q.db.QueryRow(ctx, getCustomerByID, id)
	var i CustomerWithAddress
	err := scanCustomerWithAddress(row, &i)
	return i, err
}

const countCustomers = `SELECT COUNT(*) FROM customers`

func (q *Queries) CountCustomers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countCustomers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resetCustomers = `DELETE FROM customers`

func (q *Queries) ResetCustomers(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetCustomers)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomerWithAddress(s scanner, i *CustomerWithAddress) error {
	return s.Scan(
		&i.ID,
		&i.FirstName,
		&i.LastName,
		&i.AddressID,
		&i.Phone,
		&i.CreditLimit,
		&i.Birthday,
		&i.Source,
		&i.CreatedAt,
		&i.Street,
		&i.Postcode,
	)
}
