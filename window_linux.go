//go:build linux

package main

/*
#cgo linux pkg-config: gtk+-3.0

#include <stdlib.h>
#include <gtk/gtk.h>

static int setWindowIcon(void *win, const char *path) {
	GError *err = NULL;
	gboolean ok = gtk_window_set_icon_from_file(GTK_WINDOW(win), path, &err);
	if (err != NULL) {
		g_error_free(err);
	}
	return ok;
}
*/
import "C"

import (
	"errors"
	"unsafe"
)

// setWindowIcon sets the GtkWindow icon. AppImage builds get no dock icon
// otherwise.
func setWindowIcon(handle unsafe.Pointer, path string) error {
	if handle == nil {
		return errors.New("no native window")
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	if C.setWindowIcon(handle, cpath) == 0 {
		return errors.New("gtk could not load the icon")
	}
	return nil
}
