package vm

import "testing"

func TestLimitsDefaults(t *testing.T) {
	in, _ := newTestInterpreter(t, "int main() { }", Config{})
	if got := in.Limits(); got != DefaultLimits() {
		t.Errorf("Limits() = %+v, want %+v", got, DefaultLimits())
	}

	in, _ = newTestInterpreter(t, "int main() { }", Config{Limits: Limits{MaxLocals: 5, MaxSteps: 9}})
	got := in.Limits()
	if got.MaxLocals != 5 || got.MaxSteps != 9 || got.MaxFunctions != DefaultLimits().MaxFunctions {
		t.Errorf("Limits() = %+v", got)
	}
}

func TestRunZeroesGlobals(t *testing.T) {
	in, _ := newTestInterpreter(t, "int g; int main() { g = g + 1; return g; }", Config{})
	for i := 0; i < 2; i++ {
		res, err := in.Run()
		if err != nil {
			t.Fatalf("Run #%d: %v", i, err)
		}
		if res.Value != 1 {
			t.Errorf("Run #%d = %d, want 1", i, res.Value)
		}
	}
}

func TestCallKeepsGlobals(t *testing.T) {
	in, _ := newTestInterpreter(t, "int g; int inc() { g = g + 1; return g; }", Config{})
	for want := 1; want <= 3; want++ {
		got, err := in.Call("inc")
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		if got != want {
			t.Errorf("inc() = %d, want %d", got, want)
		}
	}
	if v, ok := in.Global("g"); !ok || v != 3 {
		t.Errorf("Global(g) = %d, %v; want 3, true", v, ok)
	}
	if _, ok := in.Global("missing"); ok {
		t.Error("Global(missing) found")
	}
}

func TestRunAfterError(t *testing.T) {
	src := `int depth;
int dive(int n) { int a; if (n == 0) return 1 / n; return dive(n - 1); }
int main() { return dive(depth); }`
	in, _ := newTestInterpreter(t, src, Config{})

	_, err := in.Run()
	wantKind(t, err, ErrDivByZero)

	// The aborted run left frames behind; the next call starts clean.
	if got, err := in.Call("dive", 3); err == nil {
		t.Errorf("dive(3) = %d, want division error", got)
	}
	in.reset()
	if in.LocalDepth() != 0 || in.CallDepth() != 0 {
		t.Errorf("after reset: locals=%d frames=%d", in.LocalDepth(), in.CallDepth())
	}
}

func TestTablesAreCopies(t *testing.T) {
	in, _ := newTestInterpreter(t, "int g; int main() { return 0; }", Config{})
	if err := in.Prescan(); err != nil {
		t.Fatalf("Prescan: %v", err)
	}
	funcs := in.Functions()
	funcs[0].Name = "changed"
	globals := in.Globals()
	globals[0].Value = 99

	if in.Functions()[0].Name != "main" {
		t.Error("Functions() exposed the function table")
	}
	if v, _ := in.Global("g"); v != 0 {
		t.Error("Globals() exposed the global table")
	}
	if in.Source() != "int g; int main() { return 0; }" {
		t.Errorf("Source() = %q", in.Source())
	}
}
