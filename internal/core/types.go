// Package core provides the business logic for customer file ingestion.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Address is a postal location shared by any number of customers.
// ID is zero until the address has been persisted.
type Address struct {
	ID       int64  `json:"id"`
	Street   string `json:"street"`
	Postcode string `json:"postcode"`
}

// SameLocation reports whether a and other describe the same location.
// Street and postcode must match exactly; no case folding or normalization.
func (a Address) SameLocation(other Address) bool {
	return a.Street == other.Street && a.Postcode == other.Postcode
}

// Customer is a single ingested customer record.
// Address always refers to a persisted address; it is never owned by the customer.
type Customer struct {
	ID          int64          `json:"id"`
	FirstName   string         `json:"firstName"`
	LastName    string         `json:"lastName"`
	Address     *Address       `json:"address"`
	Phone       string         `json:"phone"`
	CreditLimit pgtype.Numeric `json:"creditLimit"`
	Birthday    time.Time      `json:"birthday"`
	Source      string         `json:"source"` // display name of the originating upload
}

// AddressStore persists addresses.
// FindAll must observe every address saved earlier in the same transaction.
type AddressStore interface {
	FindAll(ctx context.Context) ([]Address, error)
	Save(ctx context.Context, addr Address) (Address, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// AddressLocator is an optional AddressStore capability: an exact-match
// lookup by street and postcode. found is false when no address matches.
type AddressLocator interface {
	FindByLocation(ctx context.Context, street, postcode string) (addr Address, found bool, err error)
}

// CustomerStore persists customers.
type CustomerStore interface {
	Save(ctx context.Context, c Customer) (Customer, error)
	FindAll(ctx context.Context) ([]Customer, error)
	Count(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// UploadPhase indicates the outcome of an upload.
type UploadPhase string

const (
	PhaseCommitted UploadPhase = "committed"
	PhaseRejected  UploadPhase = "rejected"
)

// IngestStats summarizes a single ingest run.
type IngestStats struct {
	Format           FormatKind `json:"format"`
	Lines            int        `json:"lines"` // data lines, header excluded
	Customers        int        `json:"customers"`
	AddressesCreated int        `json:"addressesCreated"`
	AddressesReused  int        `json:"addressesReused"`
}

// UploadResult contains the final result of an upload operation.
type UploadResult struct {
	UploadID string        `json:"uploadId"`
	FileName string        `json:"fileName"`
	Phase    UploadPhase   `json:"phase"`
	Stats    IngestStats   `json:"stats"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"` // Non-empty if Phase is PhaseRejected
}

// UploadRecord is one row of upload history.
type UploadRecord struct {
	ID               string      `json:"id"`
	FileName         string      `json:"fileName"`
	Format           FormatKind  `json:"format,omitempty"`
	Phase            UploadPhase `json:"phase"`
	Customers        int         `json:"customers"`
	AddressesCreated int         `json:"addressesCreated"`
	Error            string      `json:"error,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
}

// Stats holds store-wide row counts.
type Stats struct {
	Customers int64 `json:"customers"`
	Addresses int64 `json:"addresses"`
}
