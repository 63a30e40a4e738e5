//go:build !linux && !darwin && !windows

package input

func newTyper() (Typer, error) {
	return nil, ErrUnavailable
}
