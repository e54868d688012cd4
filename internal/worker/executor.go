// Package worker implements the executing side of the engine: a single
// outbound connection to the master and the wrapper that runs the pluggable
// map and reduce implementations on received tasks.
package worker

import (
	"fmt"

	"mapred/engine/pkg/mapreduce"
	"mapred/engine/pkg/types"
)

// Executor runs map and reduce tasks through the configured implementations.
// The mapper and reducer are instantiated lazily on first use and reused for
// every following task; beyond that the executor is a pure request/response
// transform.
type Executor struct {
	registry    *mapreduce.Registry
	mapperName  string
	reducerName string
	mapper      mapreduce.Mapper
	reducer     mapreduce.Reducer
}

// NewExecutor creates an executor resolving mapperName and reducerName
// against registry.
func NewExecutor(registry *mapreduce.Registry, mapperName, reducerName string) *Executor {
	return &Executor{
		registry:    registry,
		mapperName:  mapperName,
		reducerName: reducerName,
	}
}

// ExecuteMap runs the mapper on one task, groups its emissions by
// intermediate key and packages the outcome. An invocation failure, panics
// included, is captured in the result's Err instead of crashing the worker.
func (e *Executor) ExecuteMap(task types.MapTask) types.MapResult {
	res := types.MapResult{Key: task.Key}

	if e.mapper == nil {
		mapper, err := e.registry.NewMapper(e.mapperName)
		if err != nil {
			res.Err = err.Error()
			return res
		}
		e.mapper = mapper
	}

	grouped := make(map[string][]any)
	err := invoke(func() error {
		return e.mapper.Map(task.Key, task.Value, func(key string, value any) {
			grouped[key] = append(grouped[key], value)
		})
	})
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Results = grouped
	return res
}

// ExecuteReduce runs the reducer once with the full value sequence for the
// task's key. Failures are reported the same way as in ExecuteMap.
func (e *Executor) ExecuteReduce(task types.ReduceTask) types.ReduceResult {
	res := types.ReduceResult{Key: task.Key}

	if e.reducer == nil {
		reducer, err := e.registry.NewReducer(e.reducerName)
		if err != nil {
			res.Err = err.Error()
			return res
		}
		e.reducer = reducer
	}

	var value any
	err := invoke(func() error {
		var err error
		value, err = e.reducer.Reduce(task.Key, task.Values)
		return err
	})
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Value = value
	return res
}

// invoke runs fn, converting a panic into an error.
func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn()
}
