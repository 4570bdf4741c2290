package batch

import "testing"

func TestShutdownFirstInterruptIsGraceful(t *testing.T) {
	sc := NewShutdownController()
	exited := false
	sc.exit = func(int) { exited = true }

	if sc.Requested() {
		t.Fatal("fresh controller must not be requested")
	}

	if !sc.RequestShutdown() {
		t.Fatal("first interrupt should report graceful")
	}
	if !sc.Requested() {
		t.Fatal("flag not set after first interrupt")
	}
	if exited {
		t.Fatal("first interrupt must not exit")
	}

	select {
	case <-sc.Done():
	default:
		t.Fatal("done channel not closed after first interrupt")
	}
}

func TestShutdownSecondInterruptExits(t *testing.T) {
	sc := NewShutdownController()
	var code = -1
	sc.exit = func(c int) { code = c }

	sc.RequestShutdown()
	sc.RequestShutdown()
	if code != 1 {
		t.Fatalf("second interrupt exit code = %d, want 1", code)
	}
}

func TestShutdownNotifyCallback(t *testing.T) {
	sc := NewShutdownController()
	sc.exit = func(int) {}

	var calls []bool
	sc.OnInterrupt(func(first bool) { calls = append(calls, first) })

	sc.RequestShutdown()
	sc.RequestShutdown()

	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Fatalf("notify calls = %v, want [true false]", calls)
	}
}
