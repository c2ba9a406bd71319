package core

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
)

// ============================================================================
// In-memory stores
// ============================================================================

// memAddressStore is an AddressStore without AddressLocator, so dedup falls
// back to scanning FindAll.
type memAddressStore struct {
	addrs    []Address
	nextID   int64
	findAlls int
	saveErr  error
}

func (s *memAddressStore) FindAll(ctx context.Context) ([]Address, error) {
	s.findAlls++
	out := make([]Address, len(s.addrs))
	copy(out, s.addrs)
	return out, nil
}

func (s *memAddressStore) Save(ctx context.Context, addr Address) (Address, error) {
	if s.saveErr != nil {
		return Address{}, s.saveErr
	}
	s.nextID++
	addr.ID = s.nextID
	s.addrs = append(s.addrs, addr)
	return addr, nil
}

func (s *memAddressStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.addrs)), nil
}

func (s *memAddressStore) DeleteAll(ctx context.Context) error {
	s.addrs = nil
	return nil
}

// memLocatorStore adds an indexed FindByLocation to memAddressStore.
type memLocatorStore struct {
	memAddressStore
	lookups int
}

func (s *memLocatorStore) FindByLocation(ctx context.Context, street, postcode string) (Address, bool, error) {
	s.lookups++
	for _, a := range s.addrs {
		if a.Street == street && a.Postcode == postcode {
			return a, true, nil
		}
	}
	return Address{}, false, nil
}

type memCustomerStore struct {
	customers []Customer
	nextID    int64
}

func (s *memCustomerStore) Save(ctx context.Context, c Customer) (Customer, error) {
	if c.Address == nil || c.Address.ID == 0 {
		return Customer{}, fmt.Errorf("customer %s: address not persisted", c.LastName)
	}
	s.nextID++
	c.ID = s.nextID
	s.customers = append(s.customers, c)
	return c, nil
}

func (s *memCustomerStore) FindAll(ctx context.Context) ([]Customer, error) {
	return s.customers, nil
}

func (s *memCustomerStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.customers)), nil
}

func (s *memCustomerStore) DeleteAll(ctx context.Context) error {
	s.customers = nil
	return nil
}

// ============================================================================
// Fixtures
// ============================================================================

// defaultColumns are the standard fixed-width offsets.
var defaultColumns = FixedWidthColumns{
	Name:        ColumnRange{0, 16},
	Street:      ColumnRange{16, 38},
	Postcode:    ColumnRange{38, 47},
	Phone:       ColumnRange{47, 61},
	CreditLimit: ColumnRange{61, 74},
	Birthday:    ColumnRange{74, 82},
}

func testFormats(t testing.TB) FormatSet {
	t.Helper()
	fs, err := NewFormatSet(FormatConfig{
		DelimitedDatePattern:  "dd/MM/yyyy",
		FixedWidthDatePattern: "yyyyMMdd",
		Columns:               defaultColumns,
	})
	if err != nil {
		t.Fatalf("NewFormatSet: %v", err)
	}
	return fs
}

const (
	csvHeader = "Name,Address,Postcode,Phone,Credit Limit,Birthday"
	prnHeader = "Name            Address               Postcode Phone         Credit Limit Birthday"

	andersonCSV = `"Anderson, Paul",Dorpsplein 3A,4532 AA,030 3458986,109093,03/12/1965`
	benetarCSV  = `"Benetar, Pat",Driehoog 3zwart,2340 CC,06-28938945,54,04/09/1964`
)

// prnLine lays out fields at the default fixed-width columns. Credit limit is
// right-aligned like the files produced by spreadsheet exports.
func prnLine(name, street, postcode, phone, credit, birthday string) string {
	return fmt.Sprintf("%-16s%-22s%-9s%-14s%13s%-8s", name, street, postcode, phone, credit, birthday)
}

var (
	andersonPRN = prnLine("Anderson, Paul", "Dorpsplein 3A", "4532 AA", "030 3458986", "10909300", "19651203")
	benetarPRN  = prnLine("Benetar, Pat", "Driehoog 3zwart", "2340 CC", "06-28938945", "54", "19640904")
)

// file joins a header and lines into upload content.
func file(header string, lines ...string) string {
	return strings.Join(append([]string{header}, lines...), "\n") + "\n"
}

// numericEquals reports whether n equals the decimal text want.
func numericEquals(t testing.TB, n pgtype.Numeric, want string) bool {
	t.Helper()
	if !n.Valid || n.Int == nil {
		return false
	}
	w, ok := new(big.Rat).SetString(want)
	if !ok {
		t.Fatalf("bad expected decimal %q", want)
	}

	got := new(big.Rat).SetInt(n.Int)
	scale := new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(n.Exp))), nil))
	if n.Exp < 0 {
		got.Quo(got, scale)
	} else {
		got.Mul(got, scale)
	}
	return got.Cmp(w) == 0
}

func abs(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

// assertKind fails unless err is an IngestError of kind want.
func assertKind(t *testing.T, err error, want ErrorKind) *IngestError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	ie, ok := err.(*IngestError)
	if !ok {
		t.Fatalf("expected *IngestError, got %T: %v", err, err)
	}
	if ie.Kind != want {
		t.Fatalf("Kind = %s, want %s (message %q)", ie.Kind, want, ie.Message)
	}
	return ie
}
