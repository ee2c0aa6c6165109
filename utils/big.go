package utils

import (
	"math/big"
	"reflect"
)

func AddX(x *big.Int, y ...*big.Int) *big.Int {
	z := big.NewInt(0)
	z.Set(x)
	for _, v := range y {
		z = z.Add(z, v)
	}
	return z
}

func SubX(x *big.Int, y ...*big.Int) *big.Int {
	z := big.NewInt(0)
	z.Set(x)
	for _, v := range y {
		z = z.Sub(z, v)
	}
	return z
}

func MulX(x *big.Int, y ...*big.Int) *big.Int {
	z := big.NewInt(0)
	z.Set(x)
	for _, v := range y {
		z = z.Mul(z, v)
	}
	return z
}

// DivX divides with euclidean semantics, which floors for positive divisors.
func DivX(x *big.Int, y ...*big.Int) *big.Int {
	z := big.NewInt(0)
	z.Set(x)
	for _, v := range y {
		z = z.Div(z, v)
	}
	return z
}

func BigInt64(x int64) *big.Int {
	return big.NewInt(x)
}

func BigUInt64(x uint64) *big.Int {
	return big.NewInt(0).SetUint64(x)
}

func BN[T int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64](x T) *big.Int {
	if reflect.TypeOf(x).String()[0] == 'u' {
		return BigUInt64(uint64(x))
	}
	return BigInt64(int64(x))
}
