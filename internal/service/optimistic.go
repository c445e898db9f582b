package service

import "context"

// Mutate runs an optimistic update: apply changes local state immediately and
// returns the function that undoes it, remote confirms the change. When remote
// fails the local change is reverted and the remote error is returned unchanged.
func Mutate[T any](ctx context.Context, apply func() (revert func()), remote func(ctx context.Context) (T, error)) (T, error) {
	revert := apply()
	result, err := remote(ctx)
	if err != nil {
		if revert != nil {
			revert()
		}
		var zero T
		return zero, err
	}
	return result, nil
}
