package domain

import "testing"

func TestSubtaskProgress(t *testing.T) {
	cases := []struct {
		name string
		list []Subtask
		want int
	}{
		{"empty", nil, 0},
		{"none done", []Subtask{{ID: "a"}, {ID: "b"}}, 0},
		{"half done", []Subtask{{ID: "a", Completed: true}, {ID: "b"}}, 50},
		{"rounds", []Subtask{{ID: "a", Completed: true}, {ID: "b"}, {ID: "c"}}, 33},
		{"rounds up", []Subtask{{ID: "a", Completed: true}, {ID: "b", Completed: true}, {ID: "c"}}, 67},
		{"all done", []Subtask{{ID: "a", Completed: true}}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SubtaskProgress(tc.list); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSubtaskEncodeDecode(t *testing.T) {
	if got, err := EncodeSubtasks(nil); err != nil || got != nil {
		t.Fatalf("expected nil encoding for empty list, got %v, %v", got, err)
	}

	list := AddSubtask(nil, "s1", "write docs")
	list = AddSubtask(list, "s2", "review docs")
	raw, err := EncodeSubtasks(list)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if raw == nil {
		t.Fatalf("expected non-nil encoding")
	}

	decoded := DecodeSubtasks(raw)
	if len(decoded) != 2 || decoded[0].ID != "s1" || decoded[1].Title != "review docs" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}

	garbage := "not json"
	if got := DecodeSubtasks(&garbage); got != nil {
		t.Fatalf("expected nil for garbage, got %+v", got)
	}
}

func TestSubtaskMutations(t *testing.T) {
	list := AddSubtask(nil, "s1", "one")
	list = AddSubtask(list, "s2", "two")

	toggled := ToggleSubtask(list, "s1", true)
	if !toggled[0].Completed {
		t.Fatalf("expected s1 completed")
	}
	if list[0].Completed {
		t.Fatalf("expected input list untouched")
	}

	// Unknown id leaves the list unchanged.
	same := ToggleSubtask(list, "missing", true)
	if same[0].Completed || same[1].Completed {
		t.Fatalf("expected no changes for unknown id")
	}

	removed := RemoveSubtask(list, "s1")
	if len(removed) != 1 || removed[0].ID != "s2" {
		t.Fatalf("unexpected removal result: %+v", removed)
	}
	if len(RemoveSubtask(list, "missing")) != 2 {
		t.Fatalf("expected unknown removal to keep both")
	}
}
