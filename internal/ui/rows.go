package ui

import (
	"fmt"

	"github.com/idilsaglam/shoplist/internal/model"
)

const maxName = 40

// Box is the themed checkbox for it.
func Box(it model.Item) string {
	t := Current()
	if it.Checked {
		return t.Success.Render(t.BoxChecked)
	}
	return t.Muted.Render(t.BoxUnchecked)
}

// Name truncates long names and strikes through checked ones.
func Name(it model.Item) string {
	name := it.Name
	if r := []rune(name); len(r) > maxName {
		name = string(r[:maxName-3]) + "..."
	}
	if it.Checked {
		return Current().Done.Render(name)
	}
	return name
}

// Detail is "2 × $3.50 = $7.00".
func Detail(it model.Item) string {
	return Current().Muted.Render(fmt.Sprintf("%d × %s = ", it.Quantity, Money(it.UnitPrice))) +
		Current().Accent.Render(Money(it.LineTotal()))
}

// Row renders one item on a single line.
func Row(it model.Item) string {
	return fmt.Sprintf("%s %s  %s", Box(it), Name(it), Detail(it))
}

// Header summarises the list: title, checked and pending counts, item count.
func Header(title string, items []model.Item) string {
	t := Current()
	c, p := model.Stats(items)
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render(title),
		t.Success.Render(t.BoxChecked), c,
		t.Pending.Render(t.BoxUnchecked), p,
		t.Accent.Render("Items"), len(items),
	)
}

// TotalLine is the bottom bar text.
func TotalLine(total float64) string {
	return Current().Title.Render("Estimated total: ") + Current().Accent.Render(Money(total))
}
