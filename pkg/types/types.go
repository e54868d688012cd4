// Package types defines the payloads exchanged between master and workers
// and the report a finished run produces.
package types

// MapTask is the payload of a map command: one key of the dataset and
// its value.
type MapTask struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// ReduceTask is the payload of a reduce command: one intermediate key and
// every value collected for it during the map phase.
type ReduceTask struct {
	Key    string `json:"key"`
	Values []any  `json:"values"`
}

// MapResult is the payload of a mapdone command. Results groups the mapper's
// emissions by intermediate key. A non-empty Err means the mapper invocation
// failed and Results must be ignored.
type MapResult struct {
	Key     string           `json:"key"`
	Results map[string][]any `json:"results,omitempty"`
	Err     string           `json:"err,omitempty"`
}

// ReduceResult is the payload of a reducedone command. A non-empty Err means
// the reducer invocation failed and Value must be ignored.
type ReduceResult struct {
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
	Err   string `json:"err,omitempty"`
}

// TaskFailure records a task whose mapper or reducer reported an error.
// Failed tasks are retired like successful ones but contribute nothing to
// the results.
type TaskFailure struct {
	Phase string `json:"phase"`
	Key   string `json:"key"`
	Err   string `json:"err"`
}

// RunReport summarizes one completed mapreduce run.
type RunReport struct {
	JobID       string         `json:"job_id"`
	MapTasks    int            `json:"map_tasks"`
	ReduceTasks int            `json:"reduce_tasks"`
	Reissued    int            `json:"reissued"`
	Failures    []TaskFailure  `json:"failures,omitempty"`
	Results     map[string]any `json:"results"`
}
