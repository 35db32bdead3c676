package tasks

import "reflect"

// StackRequest selects the fiber class a task runs on.
type StackRequest uint8

const (
	// StackUnknown runs on a standard fiber.
	StackUnknown StackRequest = iota
	StackSmall
	StackHuge
)

func (s StackRequest) String() string {
	switch s {
	case StackSmall:
		return "small"
	case StackHuge:
		return "huge"
	}
	return "unknown"
}

// Priority is reserved. Only PriorityDefault is scheduled.
type Priority uint8

const PriorityDefault Priority = 0

// Color is an ARGB tag shown by profilers.
type Color uint32

const (
	ColorBlue   Color = 0xFF0000FF
	ColorGreen  Color = 0xFF00FF00
	ColorRed    Color = 0xFFFF0000
	ColorYellow Color = 0xFFFFFF00
	ColorOrange Color = 0xFFFFA500
	ColorGray   Color = 0xFF808080
)

// TaskMeta is the scheduling metadata of a task type.
type TaskMeta struct {
	Stack      StackRequest
	Priority   Priority
	DebugID    string
	DebugColor Color
}

// MetaProvider is implemented by task types that override the default
// metadata (small stack, default priority, type name, blue).
type MetaProvider interface {
	TaskMeta() TaskMeta
}

// Runnable is the capability every submitted task must have.
type Runnable interface {
	Run(ec ExecutionContext)
}

// TaskFunc adapts a function to Runnable.
type TaskFunc func(ec ExecutionContext)

// Run calls f(ec).
func (f TaskFunc) Run(ec ExecutionContext) {
	f(ec)
}

// EntryFunc is the type-erased task entry point.
type EntryFunc func(ec ExecutionContext, userData any)

// TaskDesc describes one unit of work. UserData is not owned by the
// scheduler; the submitter keeps it alive until the task has run.
type TaskDesc struct {
	Entry      EntryFunc
	UserData   any
	Stack      StackRequest
	Priority   Priority
	DebugID    string
	DebugColor Color
}

// NewTaskDesc builds a descriptor with a blue debug color.
func NewTaskDesc(entry EntryFunc, userData any, stack StackRequest, priority Priority) TaskDesc {
	return TaskDesc{
		Entry:      entry,
		UserData:   userData,
		Stack:      stack,
		Priority:   priority,
		DebugColor: ColorBlue,
	}
}

// IsValid reports whether the descriptor has an entry point.
func (d TaskDesc) IsValid() bool {
	return d.Entry != nil
}

func defaultMeta[T any]() TaskMeta {
	return TaskMeta{
		Stack:      StackSmall,
		Priority:   PriorityDefault,
		DebugID:    reflect.TypeFor[T]().String(),
		DebugColor: ColorBlue,
	}
}
