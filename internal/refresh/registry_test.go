package refresh_test

import (
	"errors"
	"testing"

	"curator/internal/library"
	"curator/internal/refresh"
)

func TestRegistryDispatchesByKind(t *testing.T) {
	g := newGate(t, 1)
	people := refresh.NewCoordinator(library.KindPerson, newFakeLocator(), &recordingParser{}, g)

	reg, err := refresh.NewRegistry(people)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got, err := reg.For(library.NewPerson("p1", "Jane", "/x"))
	if err != nil || got != people {
		t.Fatalf("For(person) = %v, %v", got, err)
	}
	if _, err := reg.For(&albumEntity{}); !errors.Is(err, refresh.ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
	if kinds := reg.Kinds(); len(kinds) != 1 || kinds[0] != library.KindPerson {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestRegistryRejectsDuplicateKinds(t *testing.T) {
	g := newGate(t, 1)
	a := refresh.NewCoordinator(library.KindPerson, newFakeLocator(), &recordingParser{}, g)
	b := refresh.NewCoordinator(library.KindPerson, newFakeLocator(), &recordingParser{}, g)
	if _, err := refresh.NewRegistry(a, b); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestDefaultRegistryHandlesPeople(t *testing.T) {
	registry, err := refresh.NewDefaultRegistry(newGate(t, 1), nil)
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}
	kinds := registry.Kinds()
	if len(kinds) != 1 || kinds[0] != library.KindPerson {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}
