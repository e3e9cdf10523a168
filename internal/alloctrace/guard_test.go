package alloctrace

import "testing"

func TestReentryGuardEnterLeave(t *testing.T) {
	var g reentryGuard

	if !g.enter() {
		t.Fatal("first enter() on a fresh guard must succeed")
	}

	if g.enter() {
		t.Fatal("second enter() before leave() must fail (re-entrant call)")
	}

	g.leave()

	if !g.enter() {
		t.Fatal("enter() after leave() must succeed again")
	}

	g.leave()
}

func TestGoroutineIDIsStableWithinGoroutine(t *testing.T) {
	id1 := goroutineID()
	id2 := goroutineID()

	if id1 != id2 {
		t.Errorf("goroutineID() changed within the same goroutine: %d vs %d", id1, id2)
	}

	if id1 == 0 {
		t.Error("goroutineID() returned 0, expected a nonzero goroutine number")
	}
}

func TestGoroutineIDDiffersAcrossGoroutines(t *testing.T) {
	done := make(chan uint64)
	go func() { done <- goroutineID() }()

	other := <-done
	mine := goroutineID()

	if other == mine {
		t.Error("goroutineID() returned the same id for two different goroutines")
	}
}
