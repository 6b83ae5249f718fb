package panicutil

import (
	"github.com/sourcegraph/conc/panics"
)

// Catch runs the function and recovers from a panic raised inside it.
// If the function returns normally, it returns the values returned from the given function.
// If the function panics, it returns the zero value and the recovered panic as an error of *panics.ErrRecovered.
func Catch[T any](f func() (T, error)) (v T, err error) {
	var pc panics.Catcher
	pc.Try(func() {
		v, err = f()
	})
	if r := pc.Recovered(); r != nil {
		var zero T
		return zero, r.AsError()
	}
	return v, err
}
