package core

// extract.go splits one raw line into field slots.
//
// Delimited lines look like:
//
//	"Anderson, Paul",Dorpsplein 3A,4532 AA,030 3458986,109093,03/12/1965
//
// Fixed-width lines carry the same fields at configured character columns:
//
//	Anderson, Paul  Dorpsplein 3A         4532 AA  030 3458986       10909300 19651203

// Positions of the non-name fields within RawRecord.Fields.
const (
	fieldStreet = iota
	fieldPostcode
	fieldPhone
	fieldCreditLimit
	fieldBirthday
	fieldCount
)

// RawRecord is an extracted but unvalidated line.
type RawRecord struct {
	Line      string   // the line as read, untrimmed
	NameParts []string // [last name, first name, ...]
	Fields    []string // street, postcode, phone, credit limit, birthday, then any extras
}

// Extractor splits a line into a RawRecord.
type Extractor interface {
	Extract(line string) (RawRecord, error)
}

// DelimitedExtractor reads comma-separated lines whose first column is quoted.
type DelimitedExtractor struct{}

// Extract implements Extractor.
func (DelimitedExtractor) Extract(line string) (RawRecord, error) {
	segments := splitNonEmpty(line, '"')
	if len(segments) < 2 {
		return RawRecord{}, errMalformedRecord(line)
	}

	names, err := splitName(segments[0])
	if err != nil {
		return RawRecord{}, err
	}

	fields := splitNonEmpty(segments[1], ',')
	if len(fields) < fieldCount {
		return RawRecord{}, errMalformedRecord(line)
	}

	return RawRecord{Line: line, NameParts: names, Fields: fields}, nil
}

// FixedWidthExtractor reads lines whose fields sit at fixed character columns.
type FixedWidthExtractor struct {
	Columns FixedWidthColumns
}

// Extract implements Extractor. Column ranges past the end of the line yield
// short or empty fields, never an error.
func (x FixedWidthExtractor) Extract(line string) (RawRecord, error) {
	c := x.Columns

	names, err := splitName(substring(line, c.Name.Start, c.Name.End))
	if err != nil {
		return RawRecord{}, err
	}

	fields := make([]string, fieldCount)
	fields[fieldStreet] = substring(line, c.Street.Start, c.Street.End)
	fields[fieldPostcode] = substring(line, c.Postcode.Start, c.Postcode.End)
	fields[fieldPhone] = substring(line, c.Phone.Start, c.Phone.End)
	fields[fieldCreditLimit] = substring(line, c.CreditLimit.Start, c.CreditLimit.End)
	fields[fieldBirthday] = substring(line, c.Birthday.Start, c.Birthday.End)

	return RawRecord{Line: line, NameParts: names, Fields: fields}, nil
}

// splitName splits "Lastname, Firstname" into its parts.
func splitName(name string) ([]string, error) {
	parts := splitNonEmpty(name, ',')
	if len(parts) < 2 {
		return nil, errInvalidNameFormat(name)
	}
	return parts, nil
}
