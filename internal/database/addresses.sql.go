package database

import (
	"context"
)

const insertAddress = `
INSERT INTO addresses (street, postcode)
VALUES ($1, $2)
RETURNING id, street, postcode, created_at
`

type InsertAddressParams struct {
	Street   string
	Postcode string
}

func (q *Queries) InsertAddress(ctx context.Context, arg InsertAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, insertAddress, arg.Street, arg.Postcode)
	var i Address
	err := row.Scan(&i.ID, &i.Street, &i.Postcode, &i.CreatedAt)
	return i, err
}

const getAddressByLocation = `
SELECT id, street, postcode, created_at
FROM addresses
WHERE street = $1 AND postcode = $2
`

type GetAddressByLocationParams struct {
	Street   string
	Postcode string
}

func (q *Queries) GetAddressByLocation(ctx context.Context, arg GetAddressByLocationParams) (Address, error) {
	row := q.db.QueryRow(ctx, getAddressByLocation, arg.Street, arg.Postcode)
	var i Address
	err := row.Scan(&i.ID, &i.Street, &i.Postcode, &i.CreatedAt)
	return i, err
}

const listAddresses = `
SELECT id, street, postcode, created_at
FROM addresses
ORDER BY id
`

func (q *Queries) ListAddresses(ctx context.Context) ([]Address, error) {
	rows, err := q.db.Query(ctx, listAddresses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Address
	for rows.Next() {
		var i Address
		if err := rows.Scan(&i.ID, &i.Street, &i.Postcode, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countAddresses = `SELECT COUNT(*) FROM addresses`

func (q *Queries) CountAddresses(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countAddresses)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resetAddresses = `DELETE FROM addresses`

func (q *Queries) ResetAddresses(ctx context.Context) error {
	_, err := q.db.Exec(ctx, resetAddresses)
	return err
}

// lockAddresses blocks other writers of addresses until the transaction ends.
// Readers are not blocked.
const lockAddresses = `LOCK TABLE addresses IN SHARE ROW EXCLUSIVE MODE`

func (q *Queries) LockAddresses(ctx context.Context) error {
	_, err := q.db.Exec(ctx, lockAddresses)
	return err
}
