package source

import "context"

// Func adapts a collaborator that reports failures as a {data, error} pair
// into a plain fetch function. A non-nil remote error wins over data; any
// other failure is passed through Convert.
func Func[T any](fn func(ctx context.Context) (T, *RemoteError, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var zero T
		data, remote, err := fn(ctx)
		if remote != nil {
			return zero, Convert(remote)
		}
		if err != nil {
			return zero, Convert(err)
		}
		return data, nil
	}
}
