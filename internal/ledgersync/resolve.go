package ledgersync

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/MrJamesThe3rd/erpledger/internal/ledger"
)

// Canonical is a category name the synchronizers look for, with the kind of
// spend or revenue it stands for.
type Canonical struct {
	Name        string
	Description string
}

// SalesCategories lists, in priority order, the income categories a sale is booked under.
var SalesCategories = []Canonical{
	{Name: "Sales", Description: "Revenue from selling products and services"},
	{Name: "Sales Revenue", Description: "Revenue from selling products and services"},
	{Name: "Revenue", Description: "Operating revenue"},
	{Name: "Income", Description: "General income"},
}

// InventoryCategories lists, in priority order, the expense categories a stock purchase is booked under.
var InventoryCategories = []Canonical{
	{Name: "Inventory", Description: "Stock purchased for resale"},
	{Name: "Inventory Purchases", Description: "Stock purchased for resale"},
	{Name: "Cost of Goods Sold", Description: "Direct cost of items sold"},
	{Name: "Purchases", Description: "Goods bought from suppliers"},
	{Name: "Supplies", Description: "Materials and supplies"},
}

// maxDistance is the largest edit distance accepted as a misspelling.
const maxDistance = 2

// ResolveCategory picks the category of type typ that best matches table.
// Matching runs in passes and the first hit wins:
//  1. a category named exactly like a canonical name (case-insensitive)
//  2. a category whose name contains a canonical name
//  3. a category whose description mentions a canonical name
//  4. a category within maxDistance edits of a canonical name
//
// Within a pass, canonical names are tried in table order and categories in
// the order given. It returns nil when nothing matches.
func ResolveCategory(categories []*ledger.Category, typ ledger.Type, table []Canonical) *ledger.Category {
	candidates := make([]*ledger.Category, 0, len(categories))

	for _, c := range categories {
		if c.Type == typ {
			candidates = append(candidates, c)
		}
	}

	passes := []func(c *ledger.Category, name string) bool{
		func(c *ledger.Category, name string) bool {
			return strings.EqualFold(strings.TrimSpace(c.Name), name)
		},
		func(c *ledger.Category, name string) bool {
			return strings.Contains(strings.ToLower(c.Name), strings.ToLower(name))
		},
		func(c *ledger.Category, name string) bool {
			return c.Description != "" && strings.Contains(strings.ToLower(c.Description), strings.ToLower(name))
		},
		func(c *ledger.Category, name string) bool {
			return levenshtein.ComputeDistance(strings.ToLower(strings.TrimSpace(c.Name)), strings.ToLower(name)) <= maxDistance
		},
	}

	for _, match := range passes {
		for _, canon := range table {
			for _, c := range candidates {
				if match(c, canon.Name) {
					return c
				}
			}
		}
	}

	return nil
}

// ResolveAccount returns the first bank or cash account, or nil.
func ResolveAccount(accounts []*ledger.Account) *ledger.Account {
	for _, a := range accounts {
		if a.Type == ledger.AccountBank || a.Type == ledger.AccountCash {
			return a
		}
	}

	return nil
}
