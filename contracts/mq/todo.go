package mq

import "time"

// routing keys
const (
	RoutingTodoCreated           = "todo.created"
	RoutingTodoCompletionChanged = "todo.completion_changed"
	RoutingTodoRemoved           = "todo.removed"
)

type TodoCreatedPayload struct {
	TodoID  int       `json:"todo_id"`
	UserID  int       `json:"user_id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

type TodoCompletionChangedPayload struct {
	TodoID    int  `json:"todo_id"`
	UserID    int  `json:"user_id"`
	Completed bool `json:"completed"`
}

type TodoRemovedPayload struct {
	TodoID int `json:"todo_id"`
	UserID int `json:"user_id"`
}
