package model

// Item is one shopping-list entry as the REST service sends it.
// ID is zero until the server has assigned one.
type Item struct {
	ID        int     `json:"id,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
	Checked   bool    `json:"is_checked"`
	CreatedAt string  `json:"created_at,omitempty"` // opaque, server-assigned
}

// LineTotal is quantity times unit price. Never stored.
func (it Item) LineTotal() float64 {
	return float64(it.Quantity) * it.UnitPrice
}

// TotalCost sums LineTotal over items.
func TotalCost(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}

// Stats counts checked and pending items.
func Stats(items []Item) (checked, pending int) {
	for _, it := range items {
		if it.Checked {
			checked++
		} else {
			pending++
		}
	}
	return
}

// IndexOf returns the position of the item with id, or -1.
func IndexOf(items []Item, id int) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// DetailsUpdate is a partial update of quantity and/or price.
// Nil fields are left out of the request body.
type DetailsUpdate struct {
	Quantity  *int     `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"price,omitempty"`
}

// Diff builds the update needed to move it to quantity and unitPrice.
// Only the fields that actually differ are set.
func Diff(it Item, quantity int, unitPrice float64) DetailsUpdate {
	var u DetailsUpdate
	if it.Quantity != quantity {
		u.Quantity = &quantity
	}
	if it.UnitPrice != unitPrice {
		u.UnitPrice = &unitPrice
	}
	return u
}

// Empty reports whether the update carries no field.
func (u DetailsUpdate) Empty() bool {
	return u.Quantity == nil && u.UnitPrice == nil
}
