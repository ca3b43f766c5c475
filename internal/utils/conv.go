package utils

import (
	"strconv"
)

// StringToUint converts s to a uint, returning 0 when s is not a positive
// decimal number.
func StringToUint(s string) uint {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(i)
}
