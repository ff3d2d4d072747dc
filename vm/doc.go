// Package vm implements the Little C interpreter.
//
// Programs are executed directly from their source text; there is no syntax
// tree. This package contains:
//   - the prescan that builds the function and global tables
//   - the recursive-descent expression evaluator
//   - the statement executor and loop control
//   - function calls over a shared local variable stack
//   - host intrinsics and program images
//
// Every error is fatal: an *Error aborts the whole run and is returned from
// Run, Call or Prescan.
package vm
