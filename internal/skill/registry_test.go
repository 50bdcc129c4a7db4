package skill

import (
	"context"
	"errors"
	"testing"
)

func noopHandler(ctx context.Context, input map[string]any) (*Result, error) {
	return &Result{Text: "ok"}, nil
}

func TestRegisterDuplicateRejected(t *testing.T) {
	reg := NewRegistry()
	first := &Definition{ID: "pipeline-health", Name: "first", Handler: noopHandler}
	if err := reg.Register(first); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := reg.Register(&Definition{ID: "pipeline-health", Name: "second", Handler: noopHandler})
	if !errors.Is(err, ErrDuplicateSkill) {
		t.Fatalf("got %v, want ErrDuplicateSkill", err)
	}

	got, err := reg.Get("pipeline-health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "first" {
		t.Errorf("registry kept %q, want the first registration", got.Name)
	}
}

func TestGetUnknown(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("nope"); !errors.Is(err, ErrSkillNotFound) {
		t.Fatalf("got %v, want ErrSkillNotFound", err)
	}
}

func TestAllKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&Definition{ID: id, Handler: noopHandler}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	all := reg.All()
	if len(all) != 3 {
		t.Fatalf("got %d skills, want 3", len(all))
	}
	want := []string{"zeta", "alpha", "mid"}
	for i, def := range all {
		if def.ID != want[i] {
			t.Errorf("position %d: got %q, want %q", i, def.ID, want[i])
		}
	}
}

func TestByDomainRestartable(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Definition{ID: "a", Domain: DomainAnalytics, Handler: noopHandler})
	reg.Register(&Definition{ID: "b", Domain: DomainResearch, Handler: noopHandler})
	reg.Register(&Definition{ID: "c", Domain: DomainAnalytics, Handler: noopHandler})

	seq := reg.ByDomain(DomainAnalytics)
	for range 2 { // each iteration must see the same catalog
		var ids []string
		for def := range seq {
			ids = append(ids, def.ID)
		}
		if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
			t.Fatalf("got %v, want [a c]", ids)
		}
	}
}

func TestDescriptorsOmitHandler(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&Definition{
		ID:          "help",
		Domain:      DomainSystem,
		EstimatedMs: 50,
		Examples:    []string{"help"},
		Handler:     noopHandler,
	})

	descs := reg.Descriptors()
	if len(descs) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(descs))
	}
	if descs[0].ID != "help" || descs[0].EstimatedMs != 50 {
		t.Errorf("descriptor fields not carried over: %+v", descs[0])
	}
}
