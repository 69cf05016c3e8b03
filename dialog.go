package main

import (
	"os/exec"
	"runtime"

	"github.com/ncruces/zenity"
)

// showErrorBox shows a modal error dialog. It is best effort: without a
// desktop session the message only reaches the log.
func showErrorBox(title, msg string) {
	if err := zenity.Error(msg, zenity.Title(title), zenity.ErrorIcon); err != nil {
		component("dialog").Warn().Err(err).Str("title", title).Msg(msg)
	}
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd == nil {
		return
	}
	if err := cmd.Start(); err != nil {
		component("browser").Warn().Err(err).Str("url", url).Msg("open external")
		return
	}
	go cmd.Wait()
}
