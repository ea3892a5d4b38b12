package mdb

import (
	"bufio"
	"bytes"
	"slices"
	"strings"
)

// RequiredTables is the fixed set of legacy tables the importer understands,
// in conversion order. Any other table in the legacy database is ignored.
var RequiredTables = []string{
	"t_cookbook",
	"t_authornote",
	"t_image",
	"t_recipe",
	"t_recipeimage",
	"t_recipeingredient",
	"t_recipeprocedure",
	"t_technique",
	"t_recipetechnique",
	"t_recipetip",
}

// IsRequired reports whether table is part of RequiredTables.
func IsRequired(table string) bool {
	return slices.Contains(RequiredTables, table)
}

// SelectTables returns the required tables present in available, in
// RequiredTables order.
func SelectTables(available []string) []string {
	selected := make([]string, 0, len(RequiredTables))
	for _, table := range RequiredTables {
		if slices.Contains(available, table) {
			selected = append(selected, table)
		}
	}
	return selected
}

// parseTableList splits the one-name-per-line output of mdb-tables -1.
func parseTableList(out []byte) []string {
	var tables []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			tables = append(tables, name)
		}
	}
	return tables
}
