package model

import (
	"errors"
	"strconv"
	"strings"
)

// ErrEmptyName is returned when the add form is submitted without a name.
var ErrEmptyName = errors.New("name cannot be empty")

// Draft is a validated add-form submission.
type Draft struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// Item turns the draft into an unsaved Item.
func (d Draft) Item() Item {
	return Item{Name: d.Name, Quantity: d.Quantity, UnitPrice: d.UnitPrice}
}

// ParseDraft reads the add form. Quantity falls back to 1 and is never
// below 1; price falls back to 0.
func ParseDraft(name, quantity, price string) (Draft, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Draft{}, ErrEmptyName
	}
	q, err := strconv.Atoi(digitsOnly(quantity))
	if err != nil || q < 1 {
		q = 1
	}
	p, err := strconv.ParseFloat(decimalOnly(price), 64)
	if err != nil {
		p = 0
	}
	return Draft{Name: name, Quantity: q, UnitPrice: p}, nil
}

// ParseDetails reads the edit form against the current item. Anything
// unparsable keeps the current value, and so does a quantity below 1.
func ParseDetails(cur Item, quantity, price string) (int, float64) {
	q, err := strconv.Atoi(digitsOnly(quantity))
	if err != nil || q <= 0 {
		q = cur.Quantity
	}
	p, err := strconv.ParseFloat(decimalOnly(price), 64)
	if err != nil {
		p = cur.UnitPrice
	}
	return q, p
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func decimalOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}
