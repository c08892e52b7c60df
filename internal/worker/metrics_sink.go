package worker

import "time"

type TaskMetrics interface {
	ObserveTask(taskType, outcome string, duration time.Duration)
}

// RunMetrics feeds every event into m until the channel is closed.
func RunMetrics(events <-chan Event, m TaskMetrics) {
	for e := range events {
		m.ObserveTask(string(e.Task.Type), string(e.Kind), e.Duration)
	}
}
