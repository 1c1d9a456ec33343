package gmat

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	a, b := leoSpacecraft("A", 0), leoSpacecraft("B", 0)
	r := NewRegistry(b, a)
	if err := r.Add(NewFormation("F", a, b)); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(a); err != nil {
		t.Fatalf("adding the same object twice should be fine: %s", err)
	}
	if err := r.Add(leoSpacecraft("A", 0)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected an invalid argument error, got %v", err)
	}
	if err := r.Add(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected an invalid argument error, got %v", err)
	}
	if !reflect.DeepEqual(r.Names(), []string{"A", "B", "F"}) {
		t.Fatalf("names are %v", r.Names())
	}
	obj, err := r.Get("B")
	if err != nil || obj != Object(b) {
		t.Fatalf("got %v, %v", obj, err)
	}
	if _, err := r.Get("C"); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected an unknown object error, got %v", err)
	}
}
