package core

import (
	"bufio"
	"errors"
	"fmt"
)

// ErrorKind classifies ingestion failures.
type ErrorKind string

const (
	KindEmptyUpload          ErrorKind = "empty_upload"
	KindUnsupportedExtension ErrorKind = "unsupported_extension"
	KindMalformedRecord      ErrorKind = "malformed_record"
	KindInvalidNameFormat    ErrorKind = "invalid_name_format"
	KindBlankField           ErrorKind = "blank_field"
	KindInvalidCreditLimit   ErrorKind = "invalid_credit_limit"
	KindInvalidDate          ErrorKind = "invalid_date"
)

// IngestError is returned for every rejected upload.
// Message is user-facing and carries the offending text verbatim.
type IngestError struct {
	Kind    ErrorKind
	Line    int // 1-based line number in the file, 0 when not line-specific
	Message string
	Err     error // underlying parse error, if any
}

func (e *IngestError) Error() string {
	return e.Message
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" if err is not an *IngestError.
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// IsIngestError reports whether err was caused by the upload content rather
// than by infrastructure.
func IsIngestError(err error) bool {
	return KindOf(err) != ""
}

const emptyUploadMessage = "The uploaded file is empty or no file was chosen."

func errEmptyUpload() error {
	return &IngestError{Kind: KindEmptyUpload, Message: emptyUploadMessage}
}

func errUnsupportedExtension(ext string) error {
	return &IngestError{
		Kind:    KindUnsupportedExtension,
		Message: fmt.Sprintf("Uploaded file extension: '.%s' is not supported.", ext),
	}
}

func errMalformedRecord(line string) error {
	return &IngestError{
		Kind:    KindMalformedRecord,
		Message: "Following line has incorrect format (not enough fields): " + line,
	}
}

func errLineTooLong(limit int) error {
	return &IngestError{
		Kind:    KindMalformedRecord,
		Message: fmt.Sprintf("Following line has incorrect format (longer than %d bytes)", limit),
		Err:     bufio.ErrTooLong,
	}
}

func errInvalidNameFormat(name string) error {
	return &IngestError{
		Kind:    KindInvalidNameFormat,
		Message: fmt.Sprintf("Column Name has incorrect format (should be \"Lastname, Firstname\"): \"%s\"", name),
	}
}

func errBlankField(line string) error {
	return &IngestError{
		Kind:    KindBlankField,
		Message: "Following line has incorrect format (all fields are mandatory and can not be empty or spaces): " + line,
	}
}

func errInvalidCreditLimit(raw string, cause error) error {
	return &IngestError{
		Kind:    KindInvalidCreditLimit,
		Message: "Column Credit Limit has incorrect format (can't be parsed to decimal): " + raw,
		Err:     cause,
	}
}

func errInvalidDate(pattern, raw string, cause error) error {
	return &IngestError{
		Kind:    KindInvalidDate,
		Message: fmt.Sprintf("Column Birthday has incorrect format (should be %s): %s", pattern, raw),
		Err:     cause,
	}
}

// atLine stamps a line number onto an ingest error.
func atLine(err error, line int) error {
	var ie *IngestError
	if errors.As(err, &ie) && ie.Line == 0 {
		ie.Line = line
	}
	return err
}
