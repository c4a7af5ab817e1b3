package shopping

// Category is one aisle of a consolidated shopping list.
type Category struct {
	Category string   `json:"category" validate:"required"`
	Items    []string `json:"items" validate:"required"`
}

// ItemCount returns the number of items across categories.
func ItemCount(list []Category) int {
	n := 0
	for _, c := range list {
		n += len(c.Items)
	}
	return n
}
