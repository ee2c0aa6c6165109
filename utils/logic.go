package utils

func TT[T any](condition bool, x T, y T) T {
	if condition {
		return x
	}
	return y
}
