package snapshot

import (
	"context"
	"testing"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/database"
)

type payload struct {
	Owner string   `json:"owner"`
	Items []string `json:"items"`
}

func setupCache(t *testing.T) *Cache {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestLoadMissing(t *testing.T) {
	c := setupCache(t)

	var p payload
	ok, err := c.Load(context.Background(), "productivity-storage", &p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Error("expected no snapshot")
	}
}

func TestSaveLoadOverwrite(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, "k", payload{Owner: "u1", Items: []string{"a"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, "k", payload{Owner: "u1", Items: []string{"a", "b"}}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	var p payload
	ok, err := c.Load(ctx, "k", &p)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if len(p.Items) != 2 || p.Items[1] != "b" {
		t.Errorf("items = %v, want [a b]", p.Items)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.Save(ctx, "one", payload{Owner: "first"})
	c.Save(ctx, "two", payload{Owner: "second"})

	var p payload
	c.Load(ctx, "one", &p)
	if p.Owner != "first" {
		t.Errorf("owner = %q, want %q", p.Owner, "first")
	}
}

func TestDelete(t *testing.T) {
	c := setupCache(t)
	ctx := context.Background()

	c.Save(ctx, "k", payload{Owner: "u1"})
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var p payload
	ok, _ := c.Load(ctx, "k", &p)
	if ok {
		t.Error("expected snapshot to be gone")
	}
}
