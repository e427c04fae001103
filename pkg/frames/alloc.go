package frames

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strings"
	"unsafe"

	"github.com/dustin/go-humanize"
)

var ErrOutOfMemory = errors.New("out of memory")

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// ElementSize returns the size in bytes of one element of type T.
func ElementSize[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// allocate returns a zeroed buffer of n elements, or ErrOutOfMemory describing
// the attempted size when the buffer exceeds limit, overflows, or cannot be made.
func allocate[T any](n int, limit int64) (buf []T, err error) {
	if n < 0 {
		return nil, fmt.Errorf("negative buffer length %d", n)
	}
	elem := ElementSize[T]()
	if elem > 0 && n > math.MaxInt/elem {
		return nil, fmt.Errorf("%w: %d elements of %s overflow the address space", ErrOutOfMemory, n, typeName[T]())
	}
	bytes := uint64(n) * uint64(elem)
	if limit > 0 && bytes > uint64(limit) {
		return nil, fmt.Errorf("%w: %s buffer of %d elements needs %s, limit is %s", ErrOutOfMemory,
			typeName[T](), n, humanize.Bytes(bytes), humanize.Bytes(uint64(limit)))
	}

	defer func() {
		if r := recover(); r != nil {
			re, ok := r.(runtime.Error)
			if !ok || !strings.Contains(re.Error(), "makeslice") {
				panic(r)
			}
			buf = nil
			err = fmt.Errorf("%w: %s buffer of %d elements needs %s: %v", ErrOutOfMemory,
				typeName[T](), n, humanize.Bytes(bytes), re)
		}
	}()
	return make([]T, n), nil
}
