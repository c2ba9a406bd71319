// Package core provides the business logic for customer file ingestion.
//
// The package holds all domain logic independent of any transport layer. It
// can be used by web handlers, the seeding path, or tests without
// modification.
//
// # Pipeline
//
// Every data line of an upload passes through the same stages:
//
//  1. [FormatSet.Detect] picks a [Format] from the file extension (csv or prn)
//  2. The format's [Extractor] splits the line into a [RawRecord]
//  3. [ValidateRecord] rejects records with blank fields
//  4. [BuildCustomer] coerces the credit limit and birthday
//  5. [AddressDeduplicator] reuses a stored address with the same street and
//     postcode, or saves a new one
//  6. The customer is saved through a [CustomerStore]
//
// The first line of every file is a header and is skipped. The first failing
// line aborts the upload.
//
// # Transactions
//
// [Ingester.Ingest] does not roll back on its own. [Service.Upload] runs it
// inside one Postgres transaction, so a rejected file leaves neither
// customers nor addresses behind. Uploads are serialized through an
// [UploadLimiter] with a single slot.
//
// # Error Handling
//
// Rejections are returned as [*IngestError] values carrying an [ErrorKind],
// the user-facing message and the failing line number. [MapError] turns any
// error into a user-friendly message with a support code:
//
//   - FILE001-FILE004: File errors (empty, extension, size, missing)
//   - VAL001-VAL005: Record errors (format, name, blanks, credit limit, date)
//   - DB001-DB004: Database errors (connections, deadlocks, not found)
//   - UPL001-UPL003: Upload errors (busy, cancelled, timeout)
package core
