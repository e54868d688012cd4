package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapred/engine/pkg/mapreduce"
	"mapred/engine/pkg/types"
)

type recordingMapper struct {
	calls int
}

func (m *recordingMapper) Map(key string, value any, emit mapreduce.Emitter) error {
	m.calls++
	emit("total", 1)
	emit("total", 1)
	emit(key, value)
	return nil
}

type failingMapper struct{}

func (failingMapper) Map(string, any, mapreduce.Emitter) error {
	return errors.New("no such input")
}

type panickingReducer struct{}

func (panickingReducer) Reduce(string, []any) (any, error) {
	panic("index out of range")
}

func newTestRegistry(mapper *recordingMapper) *mapreduce.Registry {
	reg := mapreduce.NewRegistry()
	reg.MustRegisterMapper("recording", func() mapreduce.Mapper { return mapper })
	reg.MustRegisterMapper("failing", func() mapreduce.Mapper { return failingMapper{} })
	reg.MustRegisterReducer("panicking", func() mapreduce.Reducer { return panickingReducer{} })
	return reg
}

func TestExecutor_MapGroupsEmissions(t *testing.T) {
	mapper := &recordingMapper{}
	exec := NewExecutor(newTestRegistry(mapper), "recording", "panicking")

	res := exec.ExecuteMap(types.MapTask{Key: "doc", Value: "body"})
	require.Empty(t, res.Err)
	assert.Equal(t, "doc", res.Key)
	assert.Equal(t, []any{1, 1}, res.Results["total"])
	assert.Equal(t, []any{"body"}, res.Results["doc"])
}

func TestExecutor_MapperInstantiatedOnce(t *testing.T) {
	mapper := &recordingMapper{}
	exec := NewExecutor(newTestRegistry(mapper), "recording", "panicking")

	exec.ExecuteMap(types.MapTask{Key: "a"})
	exec.ExecuteMap(types.MapTask{Key: "b"})
	exec.ExecuteMap(types.MapTask{Key: "c"})
	assert.Equal(t, 3, mapper.calls)
}

func TestExecutor_UnknownNameReportsError(t *testing.T) {
	exec := NewExecutor(mapreduce.NewRegistry(), "nope", "nope")

	mres := exec.ExecuteMap(types.MapTask{Key: "a"})
	assert.Contains(t, mres.Err, "nope")
	assert.Nil(t, mres.Results)

	rres := exec.ExecuteReduce(types.ReduceTask{Key: "a"})
	assert.Contains(t, rres.Err, "nope")
	assert.Nil(t, rres.Value)
}

func TestExecutor_MapErrorCaptured(t *testing.T) {
	exec := NewExecutor(newTestRegistry(&recordingMapper{}), "failing", "panicking")

	res := exec.ExecuteMap(types.MapTask{Key: "a"})
	assert.Equal(t, "a", res.Key)
	assert.Equal(t, "no such input", res.Err)
	assert.Nil(t, res.Results)
}

func TestExecutor_ReducePanicCaptured(t *testing.T) {
	exec := NewExecutor(newTestRegistry(&recordingMapper{}), "recording", "panicking")

	res := exec.ExecuteReduce(types.ReduceTask{Key: "a", Values: []any{1}})
	assert.Equal(t, "a", res.Key)
	assert.Contains(t, res.Err, "index out of range")
	assert.Nil(t, res.Value)
}

func TestExecutor_ReduceSuccess(t *testing.T) {
	exec := NewExecutor(mapreduce.DefaultRegistry, "identity", "sum")

	res := exec.ExecuteReduce(types.ReduceTask{Key: "n", Values: []any{1, 2.5, int64(3)}})
	require.Empty(t, res.Err)
	assert.EqualValues(t, 6.5, res.Value)
}
