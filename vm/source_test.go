package vm

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSource(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"plain", "int main() { return 0; }", "int main() { return 0; }"},
		{"dos eof", "int main() { return 1; }\x1agarbage", "int main() { return 1; }"},
		{"nul", "int a;\x00int b;", "int a;"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadSource([]byte(tc.data), 0)
			if err != nil {
				t.Fatalf("LoadSource: %v", err)
			}
			if got != tc.want {
				t.Errorf("LoadSource = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoadSourceTooLarge(t *testing.T) {
	_, err := LoadSource([]byte("0123456789x"), 10)
	wantKind(t, err, ErrProgramTooLarge)

	// The terminator is not counted.
	if _, err := LoadSource([]byte("0123456789\x1aextra"), 10); err != nil {
		t.Errorf("LoadSource with terminator at the limit: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(path, []byte("int main() { return 7; }\x1a"), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := LoadFile(path, 0)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := mustRun(t, src); got != 7 {
		t.Errorf("main() = %d, want 7", got)
	}

	_, err = LoadFile(filepath.Join(dir, "missing.c"), 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadFile(missing) = %v, want ErrNotExist", err)
	}
}

func TestErrorFormatting(t *testing.T) {
	e := &Error{Kind: ErrNotVariable, Msg: "count", Name: "count"}
	if e.Error() != "not a variable: count" {
		t.Errorf("Error() = %q", e.Error())
	}

	_, _, err := runProgram(t, "int main() {\n\treturn count;\n}")
	if err == nil || err.Error() != "line 2, column 9: not a variable: count" {
		t.Errorf("error = %v", err)
	}
	if !errors.Is(err, &Error{Kind: ErrNotVariable}) {
		t.Error("errors.Is does not match by kind")
	}
	if errors.Is(err, &Error{Kind: ErrSyntax}) {
		t.Error("errors.Is matched a different kind")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf matched a plain error")
	}
}
