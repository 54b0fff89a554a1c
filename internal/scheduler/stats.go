package scheduler

type Stats struct {
	Total int `json:"total"`

	// task lifecycle
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}
