package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// InvariantError is the error wrapped by Validate methods in memutils packages when a block's cursors
// have crossed or left the bounds of the block
var InvariantError error = errors.New("block cursor invariant violated")
