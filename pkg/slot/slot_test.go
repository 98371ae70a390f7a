package slot

import "testing"

func TestSlotEmptyByDefault(t *testing.T) {
	var s Slot[func()]
	if !s.Empty() {
		t.Fatal("zero-value slot should be empty")
	}
}

func TestSetAndCall0(t *testing.T) {
	var s Slot[func()]
	called := false
	s.Set(func() { called = true })
	if s.Empty() {
		t.Fatal("slot should not be empty after Set")
	}
	Call0(&s, "test")
	if !called {
		t.Fatal("callback was not invoked")
	}
}

func TestCall1PassesArgument(t *testing.T) {
	var s Slot[func(int)]
	got := 0
	s.Set(func(v int) { got = v })
	Call1(&s, 42, "test")
	if got != 42 {
		t.Fatalf("got = %d, want 42", got)
	}
}

func TestCall2PassesBothArguments(t *testing.T) {
	var s Slot[func(string, int)]
	var gotName string
	var gotCode int
	s.Set(func(name string, code int) {
		gotName = name
		gotCode = code
	})
	Call2(&s, "boom", 7, "test")
	if gotName != "boom" || gotCode != 7 {
		t.Fatalf("got %q, %d", gotName, gotCode)
	}
}

func TestResetClearsSlot(t *testing.T) {
	var s Slot[func()]
	s.Set(func() {})
	s.Reset()
	if !s.Empty() {
		t.Fatal("slot should be empty after Reset")
	}
}

func TestCallOnEmptySlotIsNoop(t *testing.T) {
	var s Slot[func()]
	Call0(&s, "test") // must not panic
}

func TestPanicInCallbackIsRecovered(t *testing.T) {
	var s Slot[func()]
	s.Set(func() { panic("boom") })
	Call0(&s, "test") // must not propagate
}

func TestSetBound(t *testing.T) {
	type counter struct{ n int }
	c := &counter{}
	var s Slot[func(int)]
	// Go closures capture the receiver directly; this is the idiomatic
	// analogue of SEDNL's SetBound(obj, &Method).
	s.Set(func(delta int) { c.n += delta })
	Call1(&s, 5, "test")
	Call1(&s, 3, "test")
	if c.n != 8 {
		t.Fatalf("c.n = %d, want 8", c.n)
	}
}
