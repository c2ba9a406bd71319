package core

import (
	"context"
	"errors"
	"fmt"

	db "github.com/JonMunkholm/custload/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PgAddressStore is an AddressStore over Postgres. It also implements
// AddressLocator using the (street, postcode) unique index.
type PgAddressStore struct {
	q *db.Queries
}

// NewPgAddressStore returns an address store running on dbtx.
func NewPgAddressStore(dbtx db.DBTX) *PgAddressStore {
	return &PgAddressStore{q: db.New(dbtx)}
}

func (s *PgAddressStore) FindAll(ctx context.Context) ([]Address, error) {
	rows, err := s.q.ListAddresses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Address, len(rows))
	for i, r := range rows {
		out[i] = addressFromRow(r)
	}
	return out, nil
}

func (s *PgAddressStore) FindByLocation(ctx context.Context, street, postcode string) (Address, bool, error) {
	row, err := s.q.GetAddressByLocation(ctx, db.GetAddressByLocationParams{
		Street:   street,
		Postcode: postcode,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, false, nil
	}
	if err != nil {
		return Address{}, false, err
	}
	return addressFromRow(row), true, nil
}

func (s *PgAddressStore) Save(ctx context.Context, addr Address) (Address, error) {
	row, err := s.q.InsertAddress(ctx, db.InsertAddressParams{
		Street:   addr.Street,
		Postcode: addr.Postcode,
	})
	if err != nil {
		return Address{}, err
	}
	return addressFromRow(row), nil
}

func (s *PgAddressStore) Count(ctx context.Context) (int64, error) {
	return s.q.CountAddresses(ctx)
}

func (s *PgAddressStore) DeleteAll(ctx context.Context) error {
	return s.q.ResetAddresses(ctx)
}

// PgCustomerStore is a CustomerStore over Postgres.
type PgCustomerStore struct {
	q *db.Queries
}

// NewPgCustomerStore returns a customer store running on dbtx.
func NewPgCustomerStore(dbtx db.DBTX) *PgCustomerStore {
	return &PgCustomerStore{q: db.New(dbtx)}
}

func (s *PgCustomerStore) Save(ctx context.Context, c Customer) (Customer, error) {
	if c.Address == nil || c.Address.ID == 0 {
		return Customer{}, fmt.Errorf("customer %s %s: address is not persisted", c.FirstName, c.LastName)
	}

	id, err := s.q.InsertCustomer(ctx, db.InsertCustomerParams{
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		AddressID:   c.Address.ID,
		Phone:       c.Phone,
		CreditLimit: c.CreditLimit,
		Birthday:    pgtype.Date{Time: c.Birthday, Valid: true},
		Source:      c.Source,
	})
	if err != nil {
		return Customer{}, err
	}
	c.ID = id
	return c, nil
}

func (s *PgCustomerStore) FindAll(ctx context.Context) ([]Customer, error) {
	rows, err := s.q.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}

	// Customers sharing an address share one *Address.
	addrs := make(map[int64]*Address)
	out := make([]Customer, len(rows))
	for i, r := range rows {
		addr, ok := addrs[r.AddressID]
		if !ok {
			addr = &Address{ID: r.AddressID, Street: r.Street, Postcode: r.Postcode}
			addrs[r.AddressID] = addr
		}
		out[i] = customerFromRow(r, addr)
	}
	return out, nil
}

// FindByID returns a single customer or ErrNotFound.
func (s *PgCustomerStore) FindByID(ctx context.Context, id int64) (Customer, error) {
	row, err := s.q.GetCustomerByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Customer{}, err
	}
	return customerFromRow(row, &Address{ID: row.AddressID, Street: row.Street, Postcode: row.Postcode}), nil
}

func (s *PgCustomerStore) Count(ctx context.Context) (int64, error) {
	return s.q.CountCustomers(ctx)
}

func (s *PgCustomerStore) DeleteAll(ctx context.Context) error {
	return s.q.ResetCustomers(ctx)
}

func addressFromRow(r db.Address) Address {
	return Address{ID: r.ID, Street: r.Street, Postcode: r.Postcode}
}

func customerFromRow(r db.CustomerWithAddress, addr *Address) Customer {
	return Customer{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Address:     addr,
		Phone:       r.Phone,
		CreditLimit: r.CreditLimit,
		Birthday:    r.Birthday.Time,
		Source:      r.Source,
	}
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty.
func ToPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
