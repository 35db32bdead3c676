package tasks

import (
	"strconv"

	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
)

// MaxGroupsCount is the size of the group table.
const MaxGroupsCount = 256

// TaskGroup identifies a cohort of tasks that can be waited on together.
type TaskGroup int16

// Predefined groups.
const (
	// DefaultGroup always exists and is never released.
	DefaultGroup TaskGroup = 0

	// InvalidGroup is the zero handle returned by NewTaskGroup.
	InvalidGroup TaskGroup = -1

	// AssignFromContext resolves to the submitting task's own group.
	AssignFromContext TaskGroup = -2
)

// NewTaskGroup returns InvalidGroup.
func NewTaskGroup() TaskGroup {
	return InvalidGroup
}

// GroupID returns the group with an explicit index. The result is only
// usable if IsValid reports true.
func GroupID(id int16) TaskGroup {
	return TaskGroup(id)
}

// IsValid reports whether g indexes the group table.
func (g TaskGroup) IsValid() bool {
	return g >= 0 && g < MaxGroupsCount
}

// ValidIndex returns g as a table index. It panics with a contract error if
// g is not valid.
func (g TaskGroup) ValidIndex() int {
	// Called per task; only box g on the failure path.
	if !g.IsValid() {
		gferrors.Fatal("tasks", gferrors.ErrInvalidArgument, "invalid task group %s", g)
	}
	return int(g)
}

// Is reports whether g equals other.
func (g TaskGroup) Is(other TaskGroup) bool {
	return g == other
}

func (g TaskGroup) String() string {
	switch g {
	case DefaultGroup:
		return "default"
	case InvalidGroup:
		return "invalid"
	case AssignFromContext:
		return "assign_from_context"
	}
	return "group#" + strconv.Itoa(int(g))
}
