package vm

import (
	"errors"
	"strings"
	"testing"
)

func TestCallShadowing(t *testing.T) {
	src := `int x;
int show() { return x; }
int param(int x) { x = x * 100; return x; }
int local() { int x; x = 7; return x; }
int main() {
	int r;
	x = 1;
	{ int x; x = 2; r = x * 10; }
	r = r + param(3) + local();
	return r + x + show();
}`
	in, _ := newTestInterpreter(t, src, Config{})
	res, err := in.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 20 + 300 + 7 + 1 + 1
	if res.Value != 329 {
		t.Errorf("main() = %d, want 329", res.Value)
	}
	if v, ok := in.Global("x"); !ok || v != 1 {
		t.Errorf("global x = %d, %v; want 1", v, ok)
	}
}

func TestCallCalleeCannotSeeCallerLocals(t *testing.T) {
	src := `int peek() { return secret; }
int main() { int secret; secret = 4; return peek(); }`
	_, _, err := runProgram(t, src)
	wantKind(t, err, ErrNotVariable)
}

func TestCallStackRoundTrip(t *testing.T) {
	src := `int depth;
int probe() { depth = 1; return 0; }
int f(int a, int b, int c) { int x, y; char z; x = a; y = b; z = c; return x + y + z; }
int main() { return f(1, 2, 3); }`
	in, _ := newTestInterpreter(t, src, Config{})
	if err := in.Prescan(); err != nil {
		t.Fatalf("Prescan: %v", err)
	}

	v, err := in.Call("f", 4, 5, 6)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != 15 {
		t.Errorf("f(4, 5, 6) = %d, want 15", v)
	}
	if in.LocalDepth() != 0 || in.CallDepth() != 0 {
		t.Errorf("after Call: locals=%d frames=%d, want 0 0", in.LocalDepth(), in.CallDepth())
	}

	res, err := in.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Value != 6 {
		t.Errorf("main() = %d, want 6", res.Value)
	}
	if in.LocalDepth() != 0 || in.CallDepth() != 0 {
		t.Errorf("after Run: locals=%d frames=%d, want 0 0", in.LocalDepth(), in.CallDepth())
	}
}

func TestCallArgumentsUseCallerScope(t *testing.T) {
	src := `int sub(int a, int b) { return a - b; }
int main() { int a, b; a = 10; b = 3; return sub(b, a); }`
	if got := mustRun(t, src); got != -7 {
		t.Errorf("sub(b, a) = %d, want -7", got)
	}
}

func TestCallNestedCallsInArguments(t *testing.T) {
	src := `int add(int x, int y) { return x + y; }
int main() { return add(add(1, 2), add(3, add(4, 5))); }`
	if got := mustRun(t, src); got != 15 {
		t.Errorf("got %d, want 15", got)
	}
}

func TestCallHostAPI(t *testing.T) {
	src := `int classify(int x) {
	if (x < 0) return 1;
	else if (x == 0) return 2;
	return 3;
}
int main() { return 0; }`
	in, _ := newTestInterpreter(t, src, Config{})

	for arg, want := range map[int]int{-5: 1, 0: 2, 9: 3} {
		got, err := in.Call("classify", arg)
		if err != nil {
			t.Fatalf("classify(%d): %v", arg, err)
		}
		if got != want {
			t.Errorf("classify(%d) = %d, want %d", arg, got, want)
		}
	}

	_, err := in.Call("classify")
	wantKind(t, err, ErrParamMismatch)

	_, err = in.Call("missing")
	wantKind(t, err, ErrFuncUndefined)
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want ErrorKind
	}{
		{"undefined function", "int main() { return f(1); }", ErrFuncUndefined},
		{"too many arguments", "int f(int a) { return a; } int main() { return f(1, 2); }", ErrParamMismatch},
		{"too few arguments", "int f(int a, int b) { return a; } int main() { return f(1); }", ErrParamMismatch},
		{"bad separator", "int f(int a, int b) { return a; } int main() { return f(1; 2); }", ErrParenExpected},
		{"string argument to user function", `int f(int a) { return a; } int main() { return f("x"); }`, ErrSyntax},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runProgram(t, tc.src)
			wantKind(t, err, tc.want)
		})
	}
}

func TestCallEntryArity(t *testing.T) {
	_, _, err := runProgram(t, "int main(int x) {\n  return x;\n}")
	wantKind(t, err, ErrParamMismatch)
	var e *Error
	if errors.As(err, &e) && e.Pos.Line != 1 {
		t.Errorf("error line = %d, want 1", e.Pos.Line)
	}

	in, _ := newTestInterpreter(t, "int start(int a, int b) { return a + b; }", Config{Entry: "start"})
	_, err = in.Run()
	wantKind(t, err, ErrParamMismatch)

	if got, err := in.Call("start", 2, 3); err != nil || got != 5 {
		t.Errorf("start(2, 3) = %d, %v; want 5", got, err)
	}
	_, err = in.Call("start", 1)
	wantKind(t, err, ErrParamMismatch)
}

func TestCallDuplicateFunctionFirstWins(t *testing.T) {
	src := "int f() { return 1; } int f() { return 2; } int main() { return f(); }"
	if got := mustRun(t, src); got != 1 {
		t.Errorf("f() = %d, want 1", got)
	}
}

func TestCallIntrinsics(t *testing.T) {
	src := `int print(int x) { return 99; }
int main() { print("a", 1 + 2, 'z'); return double(21); }`

	rec := &recorder{}
	host := IntrinsicTable{
		"double": func(args []Arg) (int, error) { return args[0].Value * 2, nil },
	}
	in, err := NewInterpreter(src, Config{Intrinsics: Chain(rec.intrinsics(), host)})
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	res, err := in.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Value != 42 {
		t.Errorf("double(21) = %d, want 42", res.Value)
	}
	if strings.Join(rec.out, ",") != "a,3,122" {
		t.Errorf("output = %v, want [a 3 122]", rec.out)
	}
}

func TestCallIntrinsicFailure(t *testing.T) {
	_, _, err := runProgram(t, "int main() { fail(); return 0; }")
	wantKind(t, err, ErrIntrinsic)
	var e *Error
	if !errors.As(err, &e) || e.Name != "fail" {
		t.Errorf("error = %v, want one naming fail", err)
	}
	if e.Err == nil || e.Err.Error() != "host failure" {
		t.Errorf("cause = %v, want host failure", e.Err)
	}
}

func TestCallLimits(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		limits Limits
		want   ErrorKind
	}{
		{
			"call depth",
			"int f() { return f(); } int main() { return f(); }",
			Limits{MaxCallDepth: 10},
			ErrNestedFunctions,
		},
		{
			"local stack",
			"int main() { int a, b, c; return 0; }",
			Limits{MaxLocals: 2},
			ErrTooManyLocals,
		},
		{
			"parameters count as locals",
			"int f(int a, int b) { int c; return 0; } int main() { return f(1, 2); }",
			Limits{MaxLocals: 2},
			ErrTooManyLocals,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in, _ := newTestInterpreter(t, tc.src, Config{Limits: tc.limits})
			_, err := in.Run()
			wantKind(t, err, tc.want)
		})
	}
}
