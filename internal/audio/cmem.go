package audio

// #include <stdlib.h>
import "C"

import "unsafe"

// freeC releases memory malgo allocated with C.CBytes, such as the result
// of DeviceID.Pointer.
func freeC(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}
