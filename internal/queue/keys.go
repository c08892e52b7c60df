package queue

const consumerGroup = "ssb-workers"

// Keys names every Redis key the queue touches under one prefix.
type Keys struct {
	prefix string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "ssb"
	}
	return Keys{prefix: prefix}
}

func (k Keys) Prefix() string         { return k.prefix }
func (k Keys) Stream() string         { return k.prefix + ":tasks" }
func (k Keys) PriorityStream() string { return k.prefix + ":tasks:priority" }
func (k Keys) Delayed() string        { return k.prefix + ":tasks:delayed" }
func (k Keys) Completed() string      { return k.prefix + ":tasks:completed" }
func (k Keys) Failed() string         { return k.prefix + ":tasks:failed" }
func (k Keys) Task(id string) string  { return k.prefix + ":task:" + id }

func (k Keys) streamFor(priority int) string {
	if priority > 0 {
		return k.PriorityStream()
	}
	return k.Stream()
}
