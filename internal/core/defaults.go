package core

import "strconv"

// DefaultAccountName is the name of the account created for users with none.
const DefaultAccountName = "General"

// TransferCategory is the category used for the expense side of a transfer.
const TransferCategory = "Transferencias"

var defaultCategories = []Category{
	{Name: "Casa", Color: "#EC4899", Icon: "🏠"},
	{Name: "Comida", Color: "#10B981", Icon: "🍽️"},
	{Name: "Transporte", Color: "#3B82F6", Icon: "🚗"},
	{Name: "Salidas", Color: "green", Icon: "🍷"},
	{Name: "Servicios", Color: "#F59E0B", Icon: "💡"},
	{Name: "Salud", Color: "#EF4444", Icon: "🏥"},
	{Name: "Entrenamiento", Color: "#8B5CF6", Icon: "💪🏼"},
	{Name: "Educación", Color: "#6366F1", Icon: "📚"},
	{Name: "Regalos", Color: "pink", Icon: "🎁"},
	{Name: "Impuestos", Color: "black", Icon: "🥷🏻"},
	{Name: "Trabajo", Color: "blue", Icon: "💻"},
	{Name: "Otros", Color: "#64748B", Icon: "📦"},
}

// DefaultCategories returns a fresh copy of the built-in category set with
// sequential ids starting at "1".
func DefaultCategories() []Category {
	out := make([]Category, len(defaultCategories))
	for i, c := range defaultCategories {
		c.ID = strconv.Itoa(i + 1)
		out[i] = c
	}
	return out
}
