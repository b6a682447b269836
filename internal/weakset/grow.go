package weakset

import "math/bits"

// wordSize is the size of one key in bytes.
const wordSize = bits.UintSize / 8

// idealCapacity rounds need up to the next size class so that repeated
// single-row inserts do not reallocate every time.
func idealCapacity(need int) int {
	return idealByteSize(need*wordSize) / wordSize
}

// idealByteSize returns the smallest bucket of the form 2^i - 12 bytes that
// holds need bytes. Requests beyond the last bucket are returned unchanged.
func idealByteSize(need int) int {
	for i := 4; i < 32; i++ {
		if need <= (1<<i)-12 {
			return (1 << i) - 12
		}
	}
	return need
}
