package master

import (
	"fmt"

	"github.com/google/uuid"

	"mapred/engine/internal/protocol"
	"mapred/engine/internal/worker"
	"mapred/engine/pkg/mapreduce"
	"mapred/engine/pkg/types"
)

// RunLocal executes a complete run in-process, with no sockets: the task
// manager is drained by a single local executor. Standalone mode for small
// jobs and for trying out a mapper/reducer pair.
func RunLocal(source mapreduce.Dataset, mapperName, reducerName string) (*types.RunReport, error) {
	tasks := NewTaskManager(source)
	exec := worker.NewExecutor(mapreduce.DefaultRegistry, mapperName, reducerName)

	for {
		a := tasks.NextTask()
		switch a.Cmd {
		case protocol.CmdMap:
			tasks.MapDone(exec.ExecuteMap(*a.Map))
		case protocol.CmdReduce:
			tasks.ReduceDone(exec.ExecuteReduce(*a.Reduce))
		case protocol.CmdDisconnect:
			return tasks.Report(uuid.NewString()), nil
		default:
			return nil, fmt.Errorf("task manager returned unexpected command %q", a.Cmd)
		}
	}
}
