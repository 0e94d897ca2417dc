package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer
}

// CheckPow2 returns an error wrapping PowerOfTwoError if number is zero or not a power of two
func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

func AlignDown(value int, alignment uint) int {
	return value & int(^(alignment - 1))
}

// AlignUpAddress aligns an absolute address. Unlike AlignUp, it is safe to use with the full
// range of uintptr values.
func AlignUpAddress(address uintptr, alignment uint) uintptr {
	return (address + uintptr(alignment) - 1) &^ (uintptr(alignment) - 1)
}

func AlignDownAddress(address uintptr, alignment uint) uintptr {
	return address &^ (uintptr(alignment) - 1)
}
