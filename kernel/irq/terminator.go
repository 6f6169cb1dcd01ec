package irq

import (
	"github.com/huawenyu/sweb/kernel/mm/vmm"
	"github.com/huawenyu/sweb/kernel/task"
)

// SchedulerTerminator carries out the fatal page fault outcomes through
// the scheduler.
type SchedulerTerminator struct {
	Scheduler Scheduler
}

// Terminate implements vmm.Terminator.
func (st SchedulerTerminator) Terminate(ctx *task.Context, out vmm.Outcome) {
	switch out.Action {
	case vmm.TerminateProcess:
		st.Scheduler.ExitProcess(ctx, out.ExitCode)
	case vmm.TerminateThread:
		st.Scheduler.KillThread(ctx)
	}
}
