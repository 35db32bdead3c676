package tasks

import (
	"testing"

	"github.com/vnykmshr/fiberflow/internal/testutil"
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
)

func TestTaskGroup_IsValid(t *testing.T) {
	testutil.AssertEqual(t, NewTaskGroup().IsValid(), false)
	testutil.AssertEqual(t, InvalidGroup.IsValid(), false)
	testutil.AssertEqual(t, AssignFromContext.IsValid(), false)
	testutil.AssertEqual(t, DefaultGroup.IsValid(), true)

	for k := 0; k < MaxGroupsCount; k++ {
		if !GroupID(int16(k)).IsValid() {
			t.Fatalf("group %d should be valid", k)
		}
	}
	for _, k := range []int16{256, 257, 1000, 32767, -3, -100, -32768} {
		if GroupID(k).IsValid() {
			t.Fatalf("group %d should be invalid", k)
		}
	}
}

func TestTaskGroup_Equality(t *testing.T) {
	testutil.AssertEqual(t, NewTaskGroup() == InvalidGroup, true)
	testutil.AssertEqual(t, GroupID(0).Is(DefaultGroup), true)
	testutil.AssertEqual(t, GroupID(7) == GroupID(7), true)
	testutil.AssertEqual(t, GroupID(7).Is(GroupID(8)), false)
}

func TestTaskGroup_ValidIndex(t *testing.T) {
	testutil.AssertEqual(t, GroupID(42).ValidIndex(), 42)

	for _, g := range []TaskGroup{InvalidGroup, AssignFromContext, GroupID(300)} {
		r := testutil.AssertPanics(t, func() { g.ValidIndex() })
		if !gferrors.IsContractViolation(r, gferrors.ErrInvalidArgument) {
			t.Fatalf("%s: unexpected panic value %v", g, r)
		}
	}
}

func TestTaskGroup_CountersDoNotAllocate(t *testing.T) {
	table := newGroupTable()
	g := GroupID(200)

	allocs := testing.AllocsPerRun(100, func() {
		_ = g.ValidIndex()
		table.add(g, 1)
		table.all.Add(1)
		table.done(g)
	})
	testutil.AssertEqual(t, allocs, 0.0)
}

func TestTaskGroup_String(t *testing.T) {
	tests := []struct {
		g    TaskGroup
		want string
	}{
		{DefaultGroup, "default"},
		{InvalidGroup, "invalid"},
		{AssignFromContext, "assign_from_context"},
		{GroupID(12), "group#12"},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, tt.g.String(), tt.want)
	}
}
