package vkrender

import (
	"unsafe"
)

var end = "\x00"
var endChar byte = '\x00'

// ToBytes will take an unsafe.Pointer and length in bytes and convert it
// to a byte slice
func ToBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	return unsafe.Slice((*byte)(ptr), lenInBytes)
}

// SafeString null terminates s for use with the native API
func SafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func SafeStrings(list []string) []string {
	ret := make([]string, len(list))
	for i := range list {
		ret[i] = SafeString(list[i])
	}
	return ret
}
