package tasks

// groupedTask is a descriptor bound to its group. awaitingFiber is set when
// the task resumes a suspended fiber instead of starting a new one;
// parentFiber is resumed once all of its children have finished.
type groupedTask struct {
	desc          TaskDesc
	group         TaskGroup
	awaitingFiber *fiber
	parentFiber   *fiber
}

// taskBucket is a contiguous run of one submission, placed on one worker.
type taskBucket struct {
	tasks []groupedTask
}

func (b taskBucket) count() int {
	return len(b.tasks)
}
