package core

// validation.go checks an extracted record before any coercion happens.
//
// Every field is mandatory, so the only rule here is non-blankness. Running it
// first means a line with both a blank phone and a bad date reports the blank
// field, which is the more fundamental problem.

import "strings"

// ValidateRecord returns a BlankField error if any name part or field of rec
// is empty after trimming. The error quotes the whole untrimmed line.
func ValidateRecord(rec RawRecord) error {
	for _, v := range rec.NameParts {
		if isBlank(v) {
			return errBlankField(rec.Line)
		}
	}
	for _, v := range rec.Fields {
		if isBlank(v) {
			return errBlankField(rec.Line)
		}
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// BuildCustomer coerces a validated record into a Customer using the format's
// date and credit limit rules. The returned customer's Address is an unsaved
// candidate.
func BuildCustomer(rec RawRecord, f Format) (Customer, error) {
	creditLimit, err := f.CreditLimit(rec.Fields[fieldCreditLimit])
	if err != nil {
		return Customer{}, err
	}

	birthday, err := f.Date.Parse(rec.Fields[fieldBirthday])
	if err != nil {
		return Customer{}, err
	}

	return Customer{
		LastName:  strings.TrimSpace(rec.NameParts[0]),
		FirstName: strings.TrimSpace(rec.NameParts[1]),
		Address: &Address{
			Street:   strings.TrimSpace(rec.Fields[fieldStreet]),
			Postcode: strings.TrimSpace(rec.Fields[fieldPostcode]),
		},
		Phone:       strings.TrimSpace(rec.Fields[fieldPhone]),
		CreditLimit: creditLimit,
		Birthday:    birthday,
	}, nil
}
