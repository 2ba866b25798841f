package lineage

// Condition qualifiers that mark a same-cycle dependency.
const (
	SignProduced   = "+"
	CurrentRunDate = "ODAT"
)

// Defaults applied by decoders when a job omits its folder or task type.
const (
	DefaultFolder   = "Root"
	DefaultTaskType = "Command"
)

// Unbounded is the depth value meaning full transitive reachability.
const Unbounded = 0

// OutCondition is an output condition as declared on a job.
type OutCondition struct {
	Name string
	Sign string
	Date string
}

// InCondition is an input condition as declared on a job.
type InCondition struct {
	Name string
	Date string
}

// Record is one job as read from an export, before filtering.
type Record struct {
	Name     string
	Folder   string
	TaskType string
	Out      []OutCondition
	In       []InCondition
}

// Job is a parsed job with only its same-cycle conditions.
type Job struct {
	Name     string   `json:"name" yaml:"name"`
	Folder   string   `json:"folder" yaml:"folder"`
	TaskType string   `json:"task_type" yaml:"task_type"`
	In       []string `json:"in" yaml:"in"`
	Out      []string `json:"out" yaml:"out"`
}

// Edge links a producing job to a consuming job through a condition.
type Edge struct {
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Condition string `json:"condition" yaml:"condition"`
}

// Role classifies a node for display.
type Role string

// Node roles. A seed is always reported as RoleSeed even when it is also a
// start or end node.
const (
	RoleSeed    Role = "seed"
	RoleStart   Role = "start"
	RoleEnd     Role = "end"
	RoleDefault Role = "default"
)
