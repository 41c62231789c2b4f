package store_test

import (
	"context"
	"testing"

	"github.com/Aashay2112/chat-app/pkg/model"
	"github.com/Aashay2112/chat-app/pkg/store"
	"github.com/Aashay2112/chat-app/pkg/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestMemoryReturnsCopies(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	u := &model.User{ID: "u1", Email: "a@b.c", FullName: "A"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	got, _ := s.UserByID(ctx, "u1")
	got.FullName = "changed"

	again, _ := s.UserByID(ctx, "u1")
	if again.FullName != "A" {
		t.Errorf("store handed out its own record: %q", again.FullName)
	}
}
