package core

// Category is an entry of the built-in category taxonomy.
type Category struct {
	ID   string
	Name string
	Type TransactionType
}

// DefaultCategories is the taxonomy offered by the transaction form.
var DefaultCategories = []Category{
	{ID: "salary", Name: "Salary", Type: Income},
	{ID: "freelance", Name: "Freelance", Type: Income},
	{ID: "investments", Name: "Investments", Type: Income},
	{ID: "business", Name: "Business", Type: Income},
	{ID: "rental", Name: "Rental", Type: Income},
	{ID: "other-income", Name: "Other Income", Type: Income},
	{ID: "housing", Name: "Housing", Type: Expense},
	{ID: "transportation", Name: "Transportation", Type: Expense},
	{ID: "groceries", Name: "Groceries", Type: Expense},
	{ID: "utilities", Name: "Utilities", Type: Expense},
	{ID: "entertainment", Name: "Entertainment", Type: Expense},
	{ID: "food", Name: "Food", Type: Expense},
	{ID: "shopping", Name: "Shopping", Type: Expense},
	{ID: "healthcare", Name: "Healthcare", Type: Expense},
	{ID: "education", Name: "Education", Type: Expense},
	{ID: "personal", Name: "Personal Care", Type: Expense},
	{ID: "travel", Name: "Travel", Type: Expense},
	{ID: "insurance", Name: "Insurance", Type: Expense},
	{ID: "gifts", Name: "Gifts & Donations", Type: Expense},
	{ID: "bills", Name: "Bills & Fees", Type: Expense},
	{ID: "other-expense", Name: "Other Expenses", Type: Expense},
}

// CategoriesOf filters DefaultCategories by type.
func CategoriesOf(t TransactionType) []Category {
	var out []Category
	for _, c := range DefaultCategories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// HasCategory reports whether id is a category of type t.
func HasCategory(t TransactionType, id string) bool {
	for _, c := range DefaultCategories {
		if c.Type == t && c.ID == id {
			return true
		}
	}
	return false
}
