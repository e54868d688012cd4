// Package master implements the coordinating side of the engine: the
// listening acceptor, one protocol channel per worker connection, and the
// task manager that drives the run through its phases.
package master

import (
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"mapred/engine/internal/protocol"
	"mapred/engine/pkg/logger"
	"mapred/engine/pkg/mapreduce"
	"mapred/engine/pkg/types"
)

// Phase is the global progress of a run. It only ever advances.
type Phase int

const (
	// PhaseStart is the state before the first task request.
	PhaseStart Phase = iota
	// PhaseMapping dispatches map tasks over the dataset keys.
	PhaseMapping
	// PhaseReducing dispatches reduce tasks over the intermediate keys.
	PhaseReducing
	// PhaseFinished tells every requesting channel to disconnect.
	PhaseFinished
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseMapping:
		return "mapping"
	case PhaseReducing:
		return "reducing"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Assignment is the task manager's answer to one task request. Cmd is
// CmdMap, CmdReduce or CmdDisconnect; the matching payload field is set for
// the first two.
type Assignment struct {
	Cmd    protocol.Command
	Map    *types.MapTask
	Reduce *types.ReduceTask
}

// TaskManager is the scheduling state machine. Every worker channel calls
// NextTask after handshake completion and after each done-report; the
// manager partitions the work, tracks in-flight keys, aggregates results and
// advances the phase.
//
// Channels run on their own goroutines, so the whole state sits behind one
// mutex; that keeps the single-writer invariant the scheduling logic
// depends on.
type TaskManager struct {
	mu     sync.Mutex
	source mapreduce.Dataset
	phase  Phase

	// pending[next:] are the fresh keys of the current phase; working is
	// the set of keys dispatched and not yet confirmed done.
	pending []string
	next    int
	working map[string]struct{}

	intermediate map[string][]any
	results      map[string]any
	failures     []types.TaskFailure

	mapTasks    int
	reduceTasks int
	reissued    int

	rng *rand.Rand
}

// NewTaskManager creates a task manager over the loaded dataset.
func NewTaskManager(source mapreduce.Dataset) *TaskManager {
	return &TaskManager{
		source: source,
		phase:  PhaseStart,
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// NextTask returns the next assignment for a requesting channel.
//
// Once the fresh keys of a phase are exhausted, any further request is
// answered by re-issuing a random in-flight key. That is the whole of the
// fault tolerance: a crashed or slow worker's task gets redone by whoever
// asks next, with no timeout, no backoff and no bound on duplicates. The
// phase advances only when the working set drains.
func (tm *TaskManager) NextTask() Assignment {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.phase == PhaseStart {
		tm.pending = tm.source.Keys()
		tm.next = 0
		tm.working = make(map[string]struct{})
		tm.intermediate = make(map[string][]any)
		tm.phase = PhaseMapping
		logger.Info("map phase started", zap.Int("keys", len(tm.pending)))
	}

	if tm.phase == PhaseMapping {
		if tm.next < len(tm.pending) {
			key := tm.pending[tm.next]
			tm.next++
			tm.working[key] = struct{}{}
			tm.mapTasks++
			value, _ := tm.source.Value(key)
			return Assignment{Cmd: protocol.CmdMap, Map: &types.MapTask{Key: key, Value: value}}
		}
		if len(tm.working) > 0 {
			key := tm.randomWorking()
			tm.reissued++
			value, _ := tm.source.Value(key)
			return Assignment{Cmd: protocol.CmdMap, Map: &types.MapTask{Key: key, Value: value}}
		}
		tm.phase = PhaseReducing
		tm.pending = make([]string, 0, len(tm.intermediate))
		for key := range tm.intermediate {
			tm.pending = append(tm.pending, key)
		}
		tm.next = 0
		tm.working = make(map[string]struct{})
		tm.results = make(map[string]any)
		logger.Info("reduce phase started", zap.Int("keys", len(tm.pending)))
	}

	if tm.phase == PhaseReducing {
		if tm.next < len(tm.pending) {
			key := tm.pending[tm.next]
			tm.next++
			tm.working[key] = struct{}{}
			tm.reduceTasks++
			return Assignment{Cmd: protocol.CmdReduce, Reduce: &types.ReduceTask{Key: key, Values: tm.intermediate[key]}}
		}
		if len(tm.working) > 0 {
			key := tm.randomWorking()
			tm.reissued++
			return Assignment{Cmd: protocol.CmdReduce, Reduce: &types.ReduceTask{Key: key, Values: tm.intermediate[key]}}
		}
		tm.phase = PhaseFinished
		logger.Info("reduce phase done", zap.Int("results", len(tm.results)))
	}

	return Assignment{Cmd: protocol.CmdDisconnect}
}

// randomWorking picks one in-flight key uniformly at random. Callers hold
// the mutex.
func (tm *TaskManager) randomWorking() string {
	keys := make([]string, 0, len(tm.working))
	for key := range tm.working {
		keys = append(keys, key)
	}
	return keys[tm.rng.Intn(len(keys))]
}

// MapDone records one map report. Reports for keys no longer in the working
// set are discarded: the key was already retired by another worker, or the
// report belongs to an earlier phase. An accepted report appends every
// emitted value sequence to the intermediate results and retires the key,
// so the same key can never be counted twice.
//
// A report carrying an error retires the key too, but contributes nothing;
// the failure lands on the run report instead.
func (tm *TaskManager) MapDone(res types.MapResult) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.phase != PhaseMapping {
		return
	}
	if _, inFlight := tm.working[res.Key]; !inFlight {
		return
	}
	delete(tm.working, res.Key)

	if res.Err != "" {
		tm.failures = append(tm.failures, types.TaskFailure{Phase: PhaseMapping.String(), Key: res.Key, Err: res.Err})
		logger.Warn("map task failed", zap.String("key", res.Key), zap.String("err", res.Err))
		return
	}
	for key, values := range res.Results {
		tm.intermediate[key] = append(tm.intermediate[key], values...)
	}
}

// ReduceDone records one reduce report behind the same working-set guard as
// MapDone. An accepted result overwrites any previous value for the key.
func (tm *TaskManager) ReduceDone(res types.ReduceResult) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.phase != PhaseReducing {
		return
	}
	if _, inFlight := tm.working[res.Key]; !inFlight {
		return
	}
	delete(tm.working, res.Key)

	if res.Err != "" {
		tm.failures = append(tm.failures, types.TaskFailure{Phase: PhaseReducing.String(), Key: res.Key, Err: res.Err})
		logger.Warn("reduce task failed", zap.String("key", res.Key), zap.String("err", res.Err))
		return
	}
	tm.results[res.Key] = res.Value
}

// Phase returns the current phase.
func (tm *TaskManager) Phase() Phase {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.phase
}

// Done reports whether the run has finished.
func (tm *TaskManager) Done() bool {
	return tm.Phase() == PhaseFinished
}

// Results returns a copy of the final results. Call it only after the run
// finished.
func (tm *TaskManager) Results() map[string]any {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return copyResults(tm.results)
}

// Intermediate returns a copy of the value sequence accumulated for one
// intermediate key during the map phase.
func (tm *TaskManager) Intermediate(key string) []any {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	values := tm.intermediate[key]
	if values == nil {
		return nil
	}
	out := make([]any, len(values))
	copy(out, values)
	return out
}

// Report builds the run report for a finished run. The report owns its maps
// and slices; mutating it does not reach back into the task manager.
func (tm *TaskManager) Report(jobID string) *types.RunReport {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var failures []types.TaskFailure
	if tm.failures != nil {
		failures = make([]types.TaskFailure, len(tm.failures))
		copy(failures, tm.failures)
	}
	return &types.RunReport{
		JobID:       jobID,
		MapTasks:    tm.mapTasks,
		ReduceTasks: tm.reduceTasks,
		Reissued:    tm.reissued,
		Failures:    failures,
		Results:     copyResults(tm.results),
	}
}

func copyResults(results map[string]any) map[string]any {
	if results == nil {
		return nil
	}
	out := make(map[string]any, len(results))
	for key, value := range results {
		out[key] = value
	}
	return out
}
