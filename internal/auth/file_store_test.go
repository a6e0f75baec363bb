package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PutGetDelete(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := NewFileStore(p)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, ok, err := s.Get(KeyToken); ok || err != nil {
		t.Fatalf("empty store returned %v %v", ok, err)
	}

	if err := s.Put(map[string]string{KeyToken: "T1", KeyUser: "alice"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, ok, _ := s.Get(KeyUser); !ok || v != "alice" {
		t.Fatalf("get user: %q %v", v, ok)
	}

	st, err := os.Stat(p)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("want 0600, got %v", st.Mode().Perm())
	}

	if err := s.Delete(KeyToken, KeyUser); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(KeyToken); ok {
		t.Fatalf("token survived delete")
	}
}

func TestFileStore_MalformedStartsFresh(t *testing.T) {
	p := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s, err := NewFileStore(p)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, ok, err := s.Get(KeyToken); ok || err != nil {
		t.Fatalf("malformed file should read as empty: %v %v", ok, err)
	}
}
