package ch

import "context"

func WriteOrDone[T any](ctx context.Context, v T, c chan<- T) bool {
	select {
	case c <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

func ReadOrDoneOne[T any](ctx context.Context, c <-chan T) (T, bool) {
	var t T
	select {
	case <-ctx.Done():
		return t, false
	case v, ok := <-c:
		if !ok {
			return t, false
		}
		return v, true
	}
}
