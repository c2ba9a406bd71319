package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxLineLength is the longest line accepted in an upload.
var MaxLineLength = 1024 * 1024

// Upload is a file handed over by the upload layer.
type Upload struct {
	FileName string    // original name; selects the format and becomes Customer.Source
	Content  io.Reader // raw file bytes
}

// Ingester runs the parse pipeline for one upload at a time.
//
// Ingest does not roll anything back. The caller must run it inside a
// transaction that spans both stores and discard that transaction when
// Ingest returns an error.
type Ingester struct {
	Formats  FormatSet
	Encoding encoding.Encoding // charset of uploads; nil means UTF-8
}

// LookupEncoding resolves a charset label such as "utf-8" or "windows-1252".
func LookupEncoding(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return enc, nil
}

// Ingest parses every data line of up and saves the resulting customers.
// The first line is a header and is always skipped. The first failing line
// aborts the run and its error is returned unchanged.
func (in Ingester) Ingest(ctx context.Context, up Upload, addresses AddressStore, customers CustomerStore) (IngestStats, error) {
	raw := bufio.NewReader(up.Content)
	if _, err := raw.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return IngestStats{}, errEmptyUpload()
		}
		return IngestStats{}, fmt.Errorf("read upload: %w", err)
	}

	format, err := in.Formats.Detect(up.FileName)
	if err != nil {
		return IngestStats{}, err
	}

	stats := IngestStats{Format: format.Kind}
	dedup := NewAddressDeduplicator(addresses)

	scanner := bufio.NewScanner(in.decode(raw))
	scanner.Buffer(make([]byte, 0, min(64*1024, MaxLineLength)), MaxLineLength)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return stats, readError(err, 1)
		}
		return stats, errEmptyUpload()
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		stats.Lines++
		created, err := in.ingestLine(ctx, scanner.Text(), up.FileName, format, dedup, customers)
		if err != nil {
			return stats, atLine(err, lineNo)
		}

		stats.Customers++
		if created {
			stats.AddressesCreated++
		} else {
			stats.AddressesReused++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, readError(err, lineNo+1)
	}

	return stats, nil
}

// readError reports a scanner failure at line. An overlong line is the
// client's fault and becomes a malformed record.
func readError(err error, line int) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return atLine(errLineTooLong(MaxLineLength), line)
	}
	return fmt.Errorf("read upload line %d: %w", line, err)
}

// ingestLine runs extract, validate, coerce, dedup and save for one line.
// created reports whether the customer's address was newly saved.
func (in Ingester) ingestLine(ctx context.Context, line, source string, f Format, dedup *AddressDeduplicator, customers CustomerStore) (created bool, err error) {
	rec, err := f.Extractor.Extract(line)
	if err != nil {
		return false, err
	}
	if err := ValidateRecord(rec); err != nil {
		return false, err
	}

	customer, err := BuildCustomer(rec, f)
	if err != nil {
		return false, err
	}

	addr, created, err := dedup.Resolve(ctx, *customer.Address)
	if err != nil {
		return false, err
	}
	if !created {
		slog.Debug("reusing address", "address_id", addr.ID, "street", addr.Street, "postcode", addr.Postcode)
	}

	customer.Address = &addr
	customer.Source = source
	if _, err := customers.Save(ctx, customer); err != nil {
		return false, fmt.Errorf("save customer %s: %w", customer.LastName, err)
	}
	return created, nil
}

// decode converts r from the configured charset to UTF-8, dropping a leading
// byte order mark. Invalid byte sequences become U+FFFD.
func (in Ingester) decode(r io.Reader) io.Reader {
	enc := in.Encoding
	if enc == nil {
		enc = unicode.UTF8
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))
}
