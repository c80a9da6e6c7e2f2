package main

import (
	"unsafe"
)

/*
#cgo windows LDFLAGS: -lpsapi
#cgo linux LDFLAGS: -ldl

#include <stdlib.h>

#ifdef _WIN32
#define WIN32_LEAN_AND_MEAN
#include <windows.h>
#include <libloaderapi.h>

static char* NotesGenModulePath() {
    HMODULE hModule = NULL;
    if (!GetModuleHandleExA(GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS |
                           GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT,
                           (LPCTSTR)NotesGenModulePath,
                           &hModule)) {
        return NULL;
    }

    DWORD size = MAX_PATH;
    char* buffer = NULL;
    for (;;) {
        char* grown = (char*)realloc(buffer, size);
        if (!grown) {
            free(buffer);
            return NULL;
        }
        buffer = grown;
        DWORD n = GetModuleFileNameA(hModule, buffer, size);
        if (n == 0) {
            free(buffer);
            return NULL;
        }
        if (n < size) {
            return buffer;
        }
        size *= 2;
    }
}

#elif defined(__linux__) || defined(__APPLE__)
#define _GNU_SOURCE
#include <dlfcn.h>
#include <string.h>

static char* NotesGenModulePath() {
    Dl_info info;
    if (dladdr((void*)NotesGenModulePath, &info) == 0 || info.dli_fname == NULL) {
        return NULL;
    }
    return strdup(info.dli_fname);
}

#else
static char* NotesGenModulePath() { return NULL; }
#endif
*/
import "C"

// GetModulePath returns the path of the shared library the host loaded, or
// an empty string when it cannot be determined.
func GetModulePath() string {
	p := C.NotesGenModulePath()
	if p == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(p))
	return C.GoString(p)
}
