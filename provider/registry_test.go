package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	name      string
	available bool
}

func (p *stubProvider) Name() string                      { return p.name }
func (p *stubProvider) IsAvailable(context.Context) bool { return p.available }

type stubDeps struct{ apiKey string }

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*stubProvider, stubDeps]()
	reg.RegisterFactory("fast", func(d stubDeps) (*stubProvider, error) {
		return &stubProvider{name: "fast", available: d.apiKey != ""}, nil
	})

	p, err := reg.Create("fast", stubDeps{apiKey: "k"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !p.IsAvailable(context.Background()) {
		t.Error("expected available provider")
	}
	if !reg.Has("fast") || reg.Has("accurate") {
		t.Error("Has should report registered factories only")
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[*stubProvider, stubDeps]()
	if _, err := reg.Create("missing", stubDeps{}); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}

	boom := errors.New("bad config")
	reg.RegisterFactory("accurate", func(stubDeps) (*stubProvider, error) { return nil, boom })
	if _, err := reg.Create("accurate", stubDeps{}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped factory error, got %v", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry[*stubProvider, stubDeps]()
	for _, name := range []string{"fast", "accurate"} {
		reg.RegisterFactory(name, func(stubDeps) (*stubProvider, error) { return &stubProvider{name: name}, nil })
	}
	names := reg.List()
	if len(names) != 2 || names[0] != "accurate" || names[1] != "fast" {
		t.Errorf("unexpected names %v", names)
	}
}
