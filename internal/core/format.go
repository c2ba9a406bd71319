package core

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// FormatKind identifies a supported upload file format by its extension.
type FormatKind string

const (
	FormatDelimited  FormatKind = "csv"
	FormatFixedWidth FormatKind = "prn"
)

// Format bundles everything that differs between file kinds, so the ingest
// loop never branches on the kind itself.
type Format struct {
	Kind        FormatKind
	Extractor   Extractor
	Date        DatePattern
	CreditLimit func(raw string) (pgtype.Numeric, error)
}

// ColumnRange is a half-open [Start, End) character range within a line.
type ColumnRange struct {
	Start int
	End   int
}

// FixedWidthColumns locates each field of a fixed-width line.
type FixedWidthColumns struct {
	Name        ColumnRange
	Street      ColumnRange
	Postcode    ColumnRange
	Phone       ColumnRange
	CreditLimit ColumnRange
	Birthday    ColumnRange
}

// FormatConfig is the externally supplied part of the format definitions.
type FormatConfig struct {
	DelimitedDatePattern  string
	FixedWidthDatePattern string
	Columns               FixedWidthColumns
}

// FormatSet holds the supported formats keyed by lowercase extension.
type FormatSet map[FormatKind]Format

// NewFormatSet builds the delimited and fixed-width formats from cfg.
func NewFormatSet(cfg FormatConfig) (FormatSet, error) {
	csvDate, err := NewDatePattern(cfg.DelimitedDatePattern)
	if err != nil {
		return nil, fmt.Errorf("csv date pattern: %w", err)
	}
	prnDate, err := NewDatePattern(cfg.FixedWidthDatePattern)
	if err != nil {
		return nil, fmt.Errorf("prn date pattern: %w", err)
	}

	return FormatSet{
		FormatDelimited: {
			Kind:        FormatDelimited,
			Extractor:   DelimitedExtractor{},
			Date:        csvDate,
			CreditLimit: ParseCreditLimit,
		},
		FormatFixedWidth: {
			Kind:        FormatFixedWidth,
			Extractor:   FixedWidthExtractor{Columns: cfg.Columns},
			Date:        prnDate,
			CreditLimit: ParseFixedPointCreditLimit,
		},
	}, nil
}

// Detect selects the format for fileName by its extension, ignoring case.
func (fs FormatSet) Detect(fileName string) (Format, error) {
	ext := fileExtension(fileName)
	f, ok := fs[FormatKind(strings.ToLower(ext))]
	if !ok {
		return Format{}, errUnsupportedExtension(ext)
	}
	return f, nil
}

// fileExtension returns the text after the last dot of name. A name without
// a dot is treated as all extension.
func fileExtension(name string) string {
	return name[strings.LastIndexByte(name, '.')+1:]
}
