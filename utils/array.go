package utils

import "math/rand"

func RandomElement[T any](array []T) T {
	length := len(array)
	if length == 0 {
		panic("Array is empty")
	}
	return array[rand.Intn(length)]
}
