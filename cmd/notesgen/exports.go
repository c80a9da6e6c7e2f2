// Command notesgen is built with -buildmode=c-shared and loaded by the host
// add-on, which drives it through the exported NotesGen* functions.
package main

/*
#include <stdlib.h>
#include <string.h>
*/
import "C"

import (
	"unsafe"
)

func main() {}

// NotesGenVersion writes the library version.
//
//export NotesGenVersion
func NotesGenVersion(output *C.char, outputsize C.size_t) {
	replyToSyncCall(Version, output, outputsize)
}

// NotesGenRegister registers the extension. An empty dir uses the directory
// the library was loaded from.
//
//export NotesGenRegister
func NotesGenRegister(output *C.char, outputsize C.size_t, dir *C.char) {
	d := C.GoString(dir)
	if d == "" {
		d = addonDir(GetModulePath())
	}
	replyToSyncCall(loaded.register(d), output, outputsize)
}

// NotesGenUnregister shuts the extension down.
//
//export NotesGenUnregister
func NotesGenUnregister(output *C.char, outputsize C.size_t) {
	replyToSyncCall(loaded.unregister(), output, outputsize)
}

// NotesGenCall runs one command with its arguments.
//
//export NotesGenCall
func NotesGenCall(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	replyToSyncCall(loaded.call(C.GoString(input), parseArgsFromC(argv, argc)), output, outputsize)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	if argv == nil || argc <= 0 {
		return nil
	}
	return unsafeArgs(unsafe.Slice(argv, int(argc)))
}

func unsafeArgs(ptrs []*C.char) []string {
	data := make([]string, 0, len(ptrs))
	for _, p := range ptrs {
		data = append(data, C.GoString(p))
	}
	return data
}

// replyToSyncCall copies response into the host's buffer, truncating it to
// outputsize including the terminating NUL.
func replyToSyncCall(response string, output *C.char, outputsize C.size_t) {
	if output == nil || outputsize == 0 {
		return
	}
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	size := C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
	if size == outputsize {
		*(*C.char)(unsafe.Add(unsafe.Pointer(output), outputsize-1)) = 0
	}
}
