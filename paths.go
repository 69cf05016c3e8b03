package main

import (
	"fmt"
	"path/filepath"
)

// resolveServerPath returns where the nebula-client binary lives relative to
// the running launcher. Windows paths stay relative because of the short
// path length limit.
func resolveServerPath(goos, exePath string, dev bool) string {
	dir := filepath.Dir(exePath)
	if !dev {
		switch goos {
		case "darwin":
			return filepath.Join(exePath, "../../Resources/app/nebula-client")
		case "windows":
			return "./resources/app/nebula-client.exe"
		case "linux":
			return filepath.Join(dir, "resources/app/nebula-client")
		default:
			return "./resources/app/nebula-client"
		}
	}
	switch goos {
	case "darwin":
		return filepath.Join(dir, "../../../../../../../client/nebula-client")
	case "windows":
		return "../client/nebula-client.exe"
	case "linux":
		return filepath.Join(dir, "../../../../client/nebula-client")
	default:
		return "./resources/app/nebula-client"
	}
}

// resolveIconPath returns the window icon. Only linux needs one set
// explicitly (AppImage does not pick it up from the bundle).
func resolveIconPath(goos, exePath string, dev bool) string {
	if goos != "linux" {
		return ""
	}
	dir := filepath.Dir(exePath)
	if dev {
		return filepath.Join(dir, "../../../../assets/icon512x512.png")
	}
	return filepath.Join(dir, "resources/icon512x512.png")
}

func serverArgs(cfg Config, exe string) []string {
	return []string{
		"--launch-browser=false",
		"--webdir=" + filepath.ToSlash(filepath.Dir(exe)) + "/web/build",
		fmt.Sprintf("--server=127.0.0.1:%d", cfg.Port),
		"--collect=" + cfg.Collector,
		"--tracker=" + cfg.Tracker,
	}
}
