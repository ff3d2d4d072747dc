// Package lib provides the Little C console library as interpreter
// intrinsics.
package lib

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/littlec/vm"
)

// ErrArgs reports a library call with the wrong arguments.
var ErrArgs = errors.New("bad arguments")

// console holds the streams shared by the library functions.
type console struct {
	in  *bufio.Reader
	out io.Writer
}

// Standard returns print, puts, putch, getnum and getche bound to the given
// streams. A nil reader behaves as an empty input.
func Standard(in io.Reader, out io.Writer) vm.IntrinsicTable {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	c := &console{in: bufio.NewReader(in), out: out}

	return vm.IntrinsicTable{
		"print":  c.print,
		"puts":   c.puts,
		"putch":  c.putch,
		"getnum": c.getnum,
		"getche": c.getche,
	}
}

// Names lists the standard library functions, sorted.
func Names() []string {
	return Standard(nil, nil).Names()
}

// Doc returns a one-line description of a library function.
func Doc(name string) (string, bool) {
	d, ok := docs[name]
	return d, ok
}

var docs = map[string]string{
	"print":  "print(x): write an integer or string followed by a space",
	"puts":   "puts(s): write a string followed by a newline",
	"putch":  "putch(c): write one character, returns c",
	"getnum": "getnum(): read a line and return the integer it starts with",
	"getche": "getche(): read one character, echoing it, -1 at end of input",
}

// --- Output ---

// print(x) writes an integer or a string followed by a space.
func (c *console) print(args []vm.Arg) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("print takes 1 argument, got %d: %w", len(args), ErrArgs)
	}
	var err error
	if args[0].IsString {
		_, err = fmt.Fprintf(c.out, "%s ", args[0].Str)
	} else {
		_, err = fmt.Fprintf(c.out, "%d ", args[0].Value)
	}
	return 0, err
}

func (c *console) puts(args []vm.Arg) (int, error) {
	if len(args) != 1 || !args[0].IsString {
		return 0, fmt.Errorf("puts takes 1 string argument: %w", ErrArgs)
	}
	_, err := fmt.Fprintln(c.out, args[0].Str)
	return 0, err
}

func (c *console) putch(args []vm.Arg) (int, error) {
	if len(args) != 1 || args[0].IsString {
		return 0, fmt.Errorf("putch takes 1 integer argument: %w", ErrArgs)
	}
	ch := args[0].Value
	_, err := c.out.Write([]byte{byte(ch)})
	return ch, err
}

// --- Input ---

// getnum reads a line and converts its leading integer the way atoi does.
func (c *console) getnum(args []vm.Arg) (int, error) {
	if len(args) != 0 {
		return 0, fmt.Errorf("getnum takes no arguments: %w", ErrArgs)
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	return atoi(line), nil
}

// getche reads one character and echoes it to the output.
func (c *console) getche(args []vm.Arg) (int, error) {
	if len(args) != 0 {
		return 0, fmt.Errorf("getche takes no arguments: %w", ErrArgs)
	}
	b, err := c.in.ReadByte()
	if errors.Is(err, io.EOF) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := c.out.Write([]byte{b}); err != nil {
		return 0, err
	}
	return int(b), nil
}

func atoi(s string) int {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
