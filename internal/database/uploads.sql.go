package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertUpload = `
INSERT INTO uploads (id, file_name, format, status, customers, addresses_created, error)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type InsertUploadParams struct {
	ID               pgtype.UUID
	FileName         string
	Format           pgtype.Text
	Status           string
	Customers        int32
	AddressesCreated int32
	Error            pgtype.Text
}

func (q *Queries) InsertUpload(ctx context.Context, arg InsertUploadParams) error {
	_, err := q.db.Exec(ctx, insertUpload,
		arg.ID,
		arg.FileName,
		arg.Format,
		arg.Status,
		arg.Customers,
		arg.AddressesCreated,
		arg.Error,
	)
	return err
}

const listUploads = `
SELECT id, file_name, format, status, customers, addresses_created, error, created_at
FROM uploads
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListUploads(ctx context.Context, limit int32) ([]Upload, error) {
	rows, err := q.db.Query(ctx, listUploads, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Upload
	for rows.Next() {
		var i Upload
		if err := rows.Scan(
			&i.ID,
			&i.FileName,
			&i.Format,
			&i.Status,
			&i.Customers,
			&i.AddressesCreated,
			&i.Error,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
