package testutil

import "testing"

// Given, When and Then name nested subtests so a failing voter scenario
// reads as a sentence in `go test -v` output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Then "+desc, fn)
}

// And continues the previous clause.
func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("And "+desc, fn)
}
