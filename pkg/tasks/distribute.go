package tasks

import (
	gferrors "github.com/vnykmshr/fiberflow/pkg/common/errors"
)

// runnablePtr constrains PT to *T implementing Runnable.
type runnablePtr[T any] interface {
	*T
	Runnable
}

// entryFor is the entry thunk for task type T.
func entryFor[T any, PT runnablePtr[T]](ec ExecutionContext, userData any) {
	PT(userData.(*T)).Run(ec)
}

// describe writes one groupedTask per element of tasks into dst.
func describe[T any, PT runnablePtr[T]](group TaskGroup, tasks []T, dst []groupedTask) {
	meta := defaultMeta[T]()
	entry := EntryFunc(entryFor[T, PT])
	for i := range tasks {
		m := meta
		if mp, ok := any(PT(&tasks[i])).(MetaProvider); ok {
			m = mp.TaskMeta()
			if m.DebugID == "" {
				m.DebugID = meta.DebugID
			}
		}
		dst[i] = groupedTask{
			desc: TaskDesc{
				Entry:      entry,
				UserData:   &tasks[i],
				Stack:      m.Stack,
				Priority:   m.Priority,
				DebugID:    m.DebugID,
				DebugColor: m.DebugColor,
			},
			group: group,
		}
	}
}

// splitBuckets partitions tasks into count contiguous buckets in submission
// order. Sizes differ by at most one, larger buckets first.
func splitBuckets(tasks []groupedTask, count int, buckets []taskBucket) []taskBucket {
	n := len(tasks)
	if count > n {
		count = n
	}
	if count < 1 {
		count = 1
	}
	buckets = buckets[:0]
	size, extra := n/count, n%count
	start := 0
	for i := 0; i < count; i++ {
		end := start + size
		if i < extra {
			end++
		}
		buckets = append(buckets, taskBucket{tasks: tasks[start:end:end]})
		start = end
	}
	return buckets
}

// distribute describes tasks into dst and splits them into at most
// bucketCount buckets. The group must already be resolved.
func distribute[T any, PT runnablePtr[T]](group TaskGroup, tasks []T, dst []groupedTask, bucketCount int, buckets []taskBucket) []taskBucket {
	gferrors.Assert(len(tasks) > 0, "tasks", gferrors.ErrInvalidArgument, "no tasks to distribute")
	gferrors.Assert(group.IsValid(), "tasks", gferrors.ErrInvalidArgument, "cannot distribute into %s", group)
	gferrors.Assert(len(dst) >= len(tasks), "tasks", gferrors.ErrInvalidArgument,
		"descriptor buffer holds %d of %d tasks", len(dst), len(tasks))

	dst = dst[:len(tasks)]
	describe[T, PT](group, tasks, dst)
	return splitBuckets(dst, bucketCount, buckets)
}

// masterBuckets is the bucket count for submissions from outside a task.
func masterBuckets(workers, n int) int {
	return min(workers, n)
}

// coroutineBuckets is the bucket count for submissions from inside a task,
// where the calling worker is already busy.
func coroutineBuckets(workers, n int) int {
	return min(max(workers-1, 1), n)
}
