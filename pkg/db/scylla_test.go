package db

import "testing"

func TestTableNames(t *testing.T) {
	want := []string{"messages", "messages_by_id", "user_conversations", "conversation_counters", "users", "users_by_email"}
	if len(Tables) != len(want) {
		t.Fatalf("expected %d tables, got %d", len(want), len(Tables))
	}
	for i, stmt := range Tables {
		if got := TableName(stmt); got != want[i] {
			t.Errorf("table %d: got %q, want %q", i, got, want[i])
		}
	}
	if TableName("SELECT 1") != "" {
		t.Error("expected empty name for a non create statement")
	}
}
