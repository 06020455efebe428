package display

import (
	"fmt"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CustomerSortBy enumerates customer sort keys.
type CustomerSortBy string

const (
	CustomerSortByName    CustomerSortBy = "NAME"
	CustomerSortByBalance CustomerSortBy = "BALANCE"
)

// CustomerSortMethod selects the customer ordering.
type CustomerSortMethod struct {
	SortBy    CustomerSortBy `json:"sort_by" validate:"oneof=NAME BALANCE"`
	Ascending bool           `json:"ascending"`
}

// ProductSortBy enumerates product sort keys.
type ProductSortBy string

const (
	ProductSortByName  ProductSortBy = "NAME"
	ProductSortByPrice ProductSortBy = "PRICE"
)

// ProductSortMethod selects the product ordering.
type ProductSortMethod struct {
	SortBy    ProductSortBy `json:"sort_by" validate:"oneof=NAME PRICE"`
	Ascending bool          `json:"ascending"`
}

// QueueSortBy enumerates queue sort keys.
type QueueSortBy string

const (
	QueueSortByCustomerName QueueSortBy = "CUSTOMER_NAME"
	QueueSortByDate         QueueSortBy = "DATE"
	QueueSortByTotalPrice   QueueSortBy = "TOTAL_PRICE"
)

// QueueSortMethod selects the queue ordering.
type QueueSortMethod struct {
	SortBy    QueueSortBy `json:"sort_by" validate:"oneof=CUSTOMER_NAME DATE TOTAL_PRICE"`
	Ascending bool        `json:"ascending"`
}

// DefaultCollationTag is the root locale. It orders names the same way as the ICU collation
// installed by the postgres migrations.
const DefaultCollationTag = "und"

// Collation compares names at primary strength: case, accents and width are ignored.
// The zero value uses the root locale.
type Collation struct {
	tag language.Tag
}

// NewCollation parses a BCP 47 language tag.
func NewCollation(tag string) (Collation, error) {
	if tag == "" {
		tag = DefaultCollationTag
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return Collation{}, fmt.Errorf("display: parse collation %q: %w", tag, err)
	}
	return Collation{tag: parsed}, nil
}

// Tag returns the language tag of the collation.
func (c Collation) Tag() language.Tag {
	return c.tag
}

// Comparator returns a name comparison function. collate.Collator is not safe for concurrent
// use, so every sort builds its own.
func (c Collation) Comparator() func(a, b string) int {
	collator := collate.New(c.tag, collate.Loose)
	return collator.CompareString
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareID orders persisted ids ascending with unsaved rows last.
func compareID(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareInt64(*a, *b)
}

func direction(cmp int, ascending bool) int {
	if ascending {
		return cmp
	}
	return -cmp
}
