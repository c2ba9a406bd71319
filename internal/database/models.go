package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Address struct {
	ID        int64
	Street    string
	Postcode  string
	CreatedAt pgtype.Timestamptz
}

type Customer struct {
	ID          int64
	FirstName   string
	LastName    string
	AddressID   int64
	Phone       string
	CreditLimit pgtype.Numeric
	Birthday    pgtype.Date
	Source      string
	CreatedAt   pgtype.Timestamptz
}

// CustomerWithAddress is a customer row joined with its address.
type CustomerWithAddress struct {
	Customer
	Street   string
	Postcode string
}

type Upload struct {
	ID               pgtype.UUID
	FileName         string
	Format           pgtype.Text
	Status           string
	Customers        int32
	AddressesCreated int32
	Error            pgtype.Text
	CreatedAt        pgtype.Timestamptz
}
