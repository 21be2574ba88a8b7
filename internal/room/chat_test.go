package room

import "testing"

func TestTranscriptHistoryThenAppend(t *testing.T) {
	var tr Transcript

	m1 := ChatMessage{From: "A", Message: "m1", Timestamp: "10:00:00"}
	m2 := ChatMessage{From: "B", Message: "m2", Timestamp: "10:00:01"}
	m3 := ChatMessage{From: "A", Message: "m3", Timestamp: "10:00:02"}

	tr.Replace([]ChatMessage{m1, m2})
	tr.Append(m3)

	got := tr.Messages()
	want := []ChatMessage{m1, m2, m3}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestTranscriptReplaceIsWholesale(t *testing.T) {
	var tr Transcript

	tr.Append(ChatMessage{From: "A", Message: "stale"})
	tr.Replace([]ChatMessage{{From: "B", Message: "fresh"}})

	got := tr.Messages()
	if len(got) != 1 || got[0].Message != "fresh" {
		t.Fatalf("expected wholesale replacement, got %+v", got)
	}
}

func TestTranscriptMessagesReturnsCopy(t *testing.T) {
	var tr Transcript
	tr.Append(ChatMessage{From: "A", Message: "hello"})

	got := tr.Messages()
	got[0].Message = "mutated"

	if tr.Messages()[0].Message != "hello" {
		t.Fatalf("expected transcript unaffected by caller mutation")
	}
}
