package templates

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/custload/internal/core"
	"github.com/a-h/templ"
	"github.com/jackc/pgx/v5/pgtype"
)

func customerURL(id int64) templ.SafeURL {
	return templ.SafeURL(fmt.Sprintf("/customers/%d", id))
}

func street(c core.Customer) string {
	if c.Address == nil {
		return ""
	}
	return c.Address.Street
}

func postcode(c core.Customer) string {
	if c.Address == nil {
		return ""
	}
	return c.Address.Postcode
}

// creditLimit formats n with the scale it was stored with, so 109093.00
// keeps its cents.
func creditLimit(n pgtype.Numeric) string {
	v, err := n.Value()
	if err != nil || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func birthday(t time.Time) string {
	return t.Format("2006-01-02")
}
