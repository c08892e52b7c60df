package example

type TaskType string

const (
	TaskTypeFetch TaskType = "fetch"
	TaskTypeScore TaskType = "score"
)

type State string

const StateWaiting State = "waiting"

type Task struct {
	Type  TaskType
	State State
	Label string
}

func bad() {
	t := &Task{}
	t.Type = "fetsh" // want "enum field Type assigned string literal"

	u := Task{State: "waiting"} // want "enum field State assigned string literal"
	_ = u
}

func good() {
	t := &Task{Type: TaskTypeScore, Label: "free text"}
	t.Type = TaskTypeFetch
	t.State = StateWaiting
	t.Label = "still free text"
}
