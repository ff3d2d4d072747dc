package vm

import (
	"errors"
	"strconv"
	"testing"
)

// recorder collects everything the program prints.
type recorder struct {
	out []string
}

func (r *recorder) intrinsics() IntrinsicTable {
	return IntrinsicTable{
		"print": func(args []Arg) (int, error) {
			for _, a := range args {
				if a.IsString {
					r.out = append(r.out, a.Str)
				} else {
					r.out = append(r.out, strconv.Itoa(a.Value))
				}
			}
			return 0, nil
		},
		"fail": func(args []Arg) (int, error) {
			return 0, errors.New("host failure")
		},
	}
}

func newTestInterpreter(t *testing.T, src string, cfg Config) (*Interpreter, *recorder) {
	t.Helper()
	rec := &recorder{}
	if cfg.Intrinsics == nil {
		cfg.Intrinsics = rec.intrinsics()
	}
	in, err := NewInterpreter(src, cfg)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	return in, rec
}

// runProgram runs src with default configuration.
func runProgram(t *testing.T, src string) (Result, []string, error) {
	t.Helper()
	in, rec := newTestInterpreter(t, src, Config{})
	res, err := in.Run()
	return res, rec.out, err
}

// mustRun runs src and returns main's result, failing the test on error.
func mustRun(t *testing.T, src string) int {
	t.Helper()
	res, _, err := runProgram(t, src)
	if err != nil {
		t.Fatalf("Run: %v\nsource:\n%s", err, src)
	}
	return res.Value
}

// wantKind asserts that err is a fatal error of the given kind.
func wantKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("got no error, want %v", want)
	}
	kind, ok := KindOf(err)
	if !ok {
		t.Fatalf("error %v (%T) is not a *vm.Error", err, err)
	}
	if kind != want {
		t.Errorf("error kind = %v, want %v (%v)", kind, want, err)
	}
}
