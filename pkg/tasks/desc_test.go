package tasks

import (
	"testing"

	"github.com/vnykmshr/fiberflow/internal/testutil"
)

type payload struct {
	value int
}

func TestTaskDesc_RoundTrip(t *testing.T) {
	data := &payload{value: 7}
	var got any

	desc := NewTaskDesc(func(_ ExecutionContext, userData any) {
		got = userData
	}, data, StackSmall, PriorityDefault)

	testutil.AssertEqual(t, desc.IsValid(), true)
	testutil.AssertEqual(t, desc.Stack, StackSmall)
	testutil.AssertEqual(t, desc.Priority, PriorityDefault)

	task := groupedTask{desc: desc, group: DefaultGroup}
	task.desc.Entry(nil, task.desc.UserData)

	if got != any(data) {
		t.Fatalf("entry received %v, want %p", got, data)
	}
}

func TestTaskDesc_IsValid(t *testing.T) {
	testutil.AssertEqual(t, TaskDesc{}.IsValid(), false)
}

type counterTask struct {
	n *int
}

func (c *counterTask) Run(ExecutionContext) { *c.n++ }

type hugeTask struct{}

func (*hugeTask) Run(ExecutionContext) {}

func (*hugeTask) TaskMeta() TaskMeta {
	return TaskMeta{Stack: StackHuge, DebugColor: ColorRed}
}

func TestDescribe_Metadata(t *testing.T) {
	n := 0
	plain := []counterTask{{n: &n}}
	dst := make([]groupedTask, 1)
	describe[counterTask](DefaultGroup, plain, dst)

	testutil.AssertEqual(t, dst[0].desc.Stack, StackSmall)
	testutil.AssertEqual(t, dst[0].desc.DebugID, "tasks.counterTask")
	testutil.AssertEqual(t, dst[0].desc.DebugColor, ColorBlue)
	testutil.AssertEqual(t, dst[0].group, DefaultGroup)

	dst[0].desc.Entry(nil, dst[0].desc.UserData)
	testutil.AssertEqual(t, n, 1)

	huge := []hugeTask{{}}
	describe[hugeTask](GroupID(3), huge, dst)
	testutil.AssertEqual(t, dst[0].desc.Stack, StackHuge)
	testutil.AssertEqual(t, dst[0].desc.DebugColor, ColorRed)
	testutil.AssertEqual(t, dst[0].desc.DebugID, "tasks.hugeTask")
}

func TestTaskFunc(t *testing.T) {
	called := false
	fn := TaskFunc(func(ExecutionContext) { called = true })
	fns := []TaskFunc{fn}

	dst := make([]groupedTask, 1)
	describe[TaskFunc](DefaultGroup, fns, dst)
	dst[0].desc.Entry(nil, dst[0].desc.UserData)

	testutil.AssertEqual(t, called, true)
	testutil.AssertEqual(t, dst[0].desc.DebugID, "tasks.TaskFunc")
}
