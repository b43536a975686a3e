package domain

import "time"

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	// NextRun is when the task becomes due. Zero means due now.
	NextRun time.Time

	LastRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a successful run.
	LastError string
}

// TaskResult is one entry in a task's run log.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts states verified by a repair or jobs accepted by a load.
	ItemsProcessed int
}

// SchedulerConfig is read from scheduler.enabled and the repair.* and load.* keys.
type SchedulerConfig struct {
	// Enabled switches every task off when false.
	Enabled bool

	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures one task. A zero Interval disables it.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the zero TaskConfig for an unconfigured task.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig repairs hourly and leaves the daily workspace reload off.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDIndexRepair: {
				Enabled:  true,
				Interval: 1 * time.Hour,
			},
			TaskIDWorkspaceLoad: {
				Enabled:  false,
				Interval: 24 * time.Hour,
			},
		},
	}
}

// Built-in task IDs.
const (
	TaskIDIndexRepair   = "index-repair"
	TaskIDWorkspaceLoad = "workspace-load"
)
