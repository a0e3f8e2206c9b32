package raddb

import (
	"path/filepath"
	"testing"
)

func testKey(t *testing.T) MasterKey {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key
}

func TestSetGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	key := testKey(t)
	path := filepath.Join(dir, "store.db")

	db, err := Open(path, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Set("user:1", []byte("alice")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := db.Get("user:1")
	if !ok {
		t.Fatal("expected key to be present")
	}
	if string(got) != "alice" {
		t.Fatalf("got %q, want %q", got, "alice")
	}
}

func TestReopenDecryptsExistingStore(t *testing.T) {
	dir := t.TempDir()
	key := testKey(t)
	path := filepath.Join(dir, "store.db")

	db, err := Open(path, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Set("group:eng", []byte("engineering")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := Open(path, key)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok := reopened.Get("group:eng")
	if !ok || string(got) != "engineering" {
		t.Fatalf("got %q, %v; want \"engineering\", true", got, ok)
	}
}

func TestWrongKeyFailsToDecrypt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")

	db, err := Open(path, testKey(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	_, err = Open(path, testKey(t))
	if err == nil {
		t.Fatal("expected decryption to fail with a different key")
	}
	var dbErr *Error
	if !asError(err, &dbErr) || dbErr.Kind != ErrDecryption {
		t.Fatalf("got %v, want ErrDecryption", err)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "store.db"), testKey(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	existed, err := db.Remove("k")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !existed {
		t.Fatal("expected key to have existed")
	}
	if db.ContainsKey("k") {
		t.Fatal("expected key to be gone after Remove")
	}

	existed, err = db.Remove("k")
	if err != nil {
		t.Fatalf("Remove (second): %v", err)
	}
	if existed {
		t.Fatal("expected second Remove to report key absent")
	}
}

func TestMissingFileIsEmptyStore(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "does-not-exist.db"), testKey(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(db.Keys()) != 0 {
		t.Fatalf("expected empty store, got %d keys", len(db.Keys()))
	}
}

func TestKeysWithPrefix(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "store.db"), testKey(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, k := range []string{"user:1", "user:2", "group:1"} {
		if err := db.Set(k, []byte("x")); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	users := db.KeysWithPrefix("user:")
	if len(users) != 2 {
		t.Fatalf("got %d user keys, want 2", len(users))
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
