package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kbukum/scribe/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), "https://media.example.com/")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	const key = "audio/ab/abcd.mp3"

	if err := s.Put(ctx, storage.Object{Key: key, Body: strings.NewReader("ID3"), ContentType: "audio/mpeg"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := s.Has(ctx, key); err != nil || !ok {
		t.Fatalf("Has = %v, %v", ok, err)
	}

	rc, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "ID3" {
		t.Errorf("content = %q", data)
	}
	if got := s.URL("/" + key); got != "https://media.example.com/audio/ab/abcd.mp3" {
		t.Errorf("URL = %q", got)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, key); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if _, err := s.Open(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Open after Remove = %v", err)
	}
}

func TestStoreRejectsEscapingKeys(t *testing.T) {
	s, err := Open(t.TempDir(), "http://localhost")
	if err != nil {
		t.Fatal(err)
	}
	err = s.Put(context.Background(), storage.Object{Key: "../../etc/passwd", Body: strings.NewReader("x")})
	if err == nil {
		t.Fatal("expected escape to fail")
	}
	if !s.IsAvailable(context.Background()) {
		t.Error("store should be available")
	}
}
