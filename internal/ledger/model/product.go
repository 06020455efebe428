package model

// Product is a sellable item. Line items copy its name and price at order time.
type Product struct {
	ID    *int64 `json:"id,omitempty" db:"id"`
	Name  string `json:"name" db:"name"`
	Price int64  `json:"price" db:"price"`
}
