package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T, db DB) {
	t.Helper()
	if db.Bucket([]byte("foo")) != nil {
		t.Fatal("bucket should not exist")
	}
	b, err := db.CreateBucket([]byte("foo"))
	if err != nil {
		t.Fatal(err)
	} else if _, err := db.CreateBucket([]byte("foo")); err == nil {
		t.Fatal("expected error creating existing bucket")
	}

	check(b.Put([]byte("a"), []byte("1")))
	check(b.Put([]byte("b"), []byte("2")))
	if v := b.Get([]byte("a")); !bytes.Equal(v, []byte("1")) {
		t.Fatalf("staged write not visible: %q", v)
	}
	db.Cancel()
	if v := b.Get([]byte("a")); v != nil {
		t.Fatalf("cancelled write still visible: %q", v)
	}

	check(b.Put([]byte("a"), []byte("1")))
	check(b.Put([]byte("b"), []byte("2")))
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	check(b.Delete([]byte("a")))
	if v := b.Get([]byte("a")); v != nil {
		t.Fatalf("staged delete not visible: %q", v)
	}
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}
	if v := b.Get([]byte("a")); v != nil {
		t.Fatalf("deleted key still present: %q", v)
	} else if v := b.Get([]byte("b")); !bytes.Equal(v, []byte("2")) {
		t.Fatalf("flushed write missing: %q", v)
	}
}

func TestMemDB(t *testing.T) {
	testDB(t, NewMemDB())
}

func TestBoltDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenBoltDB(path)
	if err != nil {
		t.Fatal(err)
	}
	testDB(t, db)

	b := db.Bucket([]byte("foo"))
	check(b.Put([]byte("c"), []byte("3")))
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	// writes pending at Close are persisted
	db, err = OpenBoltDB(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	b = db.Bucket([]byte("foo"))
	if b == nil {
		t.Fatal("bucket missing after reopen")
	} else if v := b.Get([]byte("b")); !bytes.Equal(v, []byte("2")) {
		t.Fatalf("value missing after reopen: %q", v)
	} else if v := b.Get([]byte("c")); !bytes.Equal(v, []byte("3")) {
		t.Fatalf("value missing after reopen: %q", v)
	}
}
