package domain

import (
	"encoding/json"
	"math"
)

// Subtask is an element of the ordered list embedded on a task row.
// Mutations are pure list-in/list-out functions; persistence is a
// read-modify-write of the whole list.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// DecodeSubtasks parses the embedded list. A nil or empty column is an
// empty list, never an error.
func DecodeSubtasks(raw *string) []Subtask {
	if raw == nil || *raw == "" {
		return nil
	}
	var list []Subtask
	if err := json.Unmarshal([]byte(*raw), &list); err != nil {
		return nil
	}
	return list
}

// EncodeSubtasks serializes the list for storage. An empty list encodes
// to nil so the column stays NULL.
func EncodeSubtasks(list []Subtask) (*string, error) {
	if len(list) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// AddSubtask appends a new subtask with the given id and title.
func AddSubtask(list []Subtask, id, title string) []Subtask {
	return append(list, Subtask{ID: id, Title: title})
}

// ToggleSubtask sets the completed flag on the subtask with the given id.
// Unknown ids leave the list unchanged.
func ToggleSubtask(list []Subtask, id string, completed bool) []Subtask {
	out := make([]Subtask, len(list))
	copy(out, list)
	for i := range out {
		if out[i].ID == id {
			out[i].Completed = completed
		}
	}
	return out
}

// RemoveSubtask deletes the subtask with the given id, preserving order.
func RemoveSubtask(list []Subtask, id string) []Subtask {
	out := make([]Subtask, 0, len(list))
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// SubtaskProgress returns round(100 * completed / total), or 0 when the
// list is empty.
func SubtaskProgress(list []Subtask) int {
	if len(list) == 0 {
		return 0
	}
	done := 0
	for _, s := range list {
		if s.Completed {
			done++
		}
	}
	return int(math.Round(100 * float64(done) / float64(len(list))))
}
