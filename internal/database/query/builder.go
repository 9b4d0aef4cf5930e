// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

// Package query builds parameterized SQL WHERE clauses for the dataset store.
package query

import (
	"fmt"
	"strings"
)

// WhereBuilder collects AND-ed conditions and their bind arguments.
//
//	wb := query.NewWhereBuilder()
//	wb.AddEquals("run_id", runID).AddIn("crop", []string{"Wheat", "Rice"})
//	where, args := wb.Build()
//	// run_id = ? AND crop IN (?, ?)
//
// Column names are interpolated and must come from code, never from input.
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder returns an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddEquals adds "column = ?".
func (wb *WhereBuilder) AddEquals(column string, value interface{}) *WhereBuilder {
	return wb.AddClause(column+" = ?", value)
}

// AddIn adds "column IN (?, ...)". An empty list is skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// AddRange adds inclusive bounds on column. Nil bounds are skipped.
func (wb *WhereBuilder) AddRange(column string, lo, hi *float64) *WhereBuilder {
	if lo != nil {
		wb.AddClause(column+" >= ?", *lo)
	}
	if hi != nil {
		wb.AddClause(column+" <= ?", *hi)
	}
	return wb
}

// AddIntRange adds inclusive bounds on an integer column. Zero bounds are skipped.
func (wb *WhereBuilder) AddIntRange(column string, lo, hi int) *WhereBuilder {
	if lo != 0 {
		wb.AddClause(column+" >= ?", lo)
	}
	if hi != 0 {
		wb.AddClause(column+" <= ?", hi)
	}
	return wb
}

// Build joins the conditions with AND. An empty builder yields "1=1".
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix is Build with a leading "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	where, args := wb.Build()
	return "WHERE " + where, args
}
