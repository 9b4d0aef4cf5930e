// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package query

import (
	"reflect"
	"testing"
)

func TestWhereBuilder_Empty(t *testing.T) {
	t.Parallel()

	wb := NewWhereBuilder()
	where, args := wb.Build()
	if where != "1=1" || len(args) != 0 {
		t.Errorf("Build() = %q, %v", where, args)
	}
	if where, _ := wb.BuildWithPrefix(); where != "WHERE 1=1" {
		t.Errorf("BuildWithPrefix() = %q", where)
	}
}

func TestWhereBuilder_Combined(t *testing.T) {
	t.Parallel()

	lo, hi := 5.5, 7.0
	where, args := NewWhereBuilder().
		AddEquals("run_id", "r1").
		AddIn("crop", []string{"Wheat", "Rice"}).
		AddIn("crop", nil).
		AddRange("soil_ph", &lo, &hi).
		AddRange("rainfall", nil, nil).
		AddIntRange("month", 10, 0).
		Build()

	wantWhere := "run_id = ? AND crop IN (?, ?) AND soil_ph >= ? AND soil_ph <= ? AND month >= ?"
	if where != wantWhere {
		t.Errorf("where = %q\nwant    %q", where, wantWhere)
	}
	wantArgs := []interface{}{"r1", "Wheat", "Rice", 5.5, 7.0, 10}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestWhereBuilder_AddClause(t *testing.T) {
	t.Parallel()

	where, args := NewWhereBuilder().AddClause("season IN (?, ?)", 1, 2).Build()
	if where != "season IN (?, ?)" || len(args) != 2 {
		t.Errorf("Build() = %q, %v", where, args)
	}
}
