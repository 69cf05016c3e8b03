package main

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MenuItem is one entry of the application menu. Items with an Action call
// the bound Go function of that name; items with a Command run a browser
// editing command.
type MenuItem struct {
	Label       string
	Accelerator string
	Action      string
	Command     string
	Separator   bool
}

// Menu is a top-level menu with its items.
type Menu struct {
	Label string
	Items []MenuItem
}

func applicationMenu() []Menu {
	return []Menu{
		{Label: "Samos", Items: []MenuItem{
			{Label: "Quit", Accelerator: "Command+Q", Action: "quit"},
		}},
		{Label: "Edit", Items: []MenuItem{
			{Label: "Undo", Accelerator: "CmdOrCtrl+Z", Command: "undo"},
			{Label: "Redo", Accelerator: "Shift+CmdOrCtrl+Z", Command: "redo"},
			{Separator: true},
			{Label: "Cut", Accelerator: "CmdOrCtrl+X", Command: "cut"},
			{Label: "Copy", Accelerator: "CmdOrCtrl+C", Command: "copy"},
			{Label: "Paste", Accelerator: "CmdOrCtrl+V", Command: "paste"},
			{Label: "Select All", Accelerator: "CmdOrCtrl+A", Command: "selectAll"},
		}},
		{Label: "View", Items: []MenuItem{
			{Label: "Reload", Accelerator: "CmdOrCtrl+R", Action: "reload"},
			{Label: "Reload", Accelerator: "F5", Action: "reload"},
		}},
	}
}

// keyBinding is an accelerator resolved for one platform.
type keyBinding struct {
	Key     string `json:"key"`
	Meta    bool   `json:"meta"`
	Ctrl    bool   `json:"ctrl"`
	Shift   bool   `json:"shift"`
	Alt     bool   `json:"alt"`
	Action  string `json:"action,omitempty"`
	Command string `json:"command,omitempty"`
}

// parseAccelerator turns "Shift+CmdOrCtrl+Z" into a key binding. On darwin
// CmdOrCtrl is the Command key, elsewhere Control.
func parseAccelerator(accel, goos string) (keyBinding, error) {
	var kb keyBinding
	parts := strings.Split(accel, "+")
	for i, p := range parts {
		if i == len(parts)-1 {
			if p == "" {
				return kb, fmt.Errorf("accelerator %q has no key", accel)
			}
			kb.Key = strings.ToLower(p)
			break
		}
		switch strings.ToLower(p) {
		case "cmdorctrl", "commandorcontrol":
			if goos == "darwin" {
				kb.Meta = true
			} else {
				kb.Ctrl = true
			}
		case "command", "cmd":
			// Command+Q is a Mac accelerator; other platforms use Ctrl.
			if goos == "darwin" {
				kb.Meta = true
			} else {
				kb.Ctrl = true
			}
		case "ctrl", "control":
			kb.Ctrl = true
		case "shift":
			kb.Shift = true
		case "alt", "option":
			kb.Alt = true
		default:
			return kb, fmt.Errorf("accelerator %q: unknown modifier %q", accel, p)
		}
	}
	return kb, nil
}

func menuBindings(menus []Menu, goos string) ([]keyBinding, error) {
	var out []keyBinding
	for _, m := range menus {
		for _, item := range m.Items {
			if item.Separator || item.Accelerator == "" {
				continue
			}
			kb, err := parseAccelerator(item.Accelerator, goos)
			if err != nil {
				return nil, err
			}
			kb.Action = item.Action
			kb.Command = item.Command
			out = append(out, kb)
		}
	}
	return out, nil
}

const keyScript = `(function(){
  var bindings = %s;
  window.addEventListener('keydown', function(e){
    for (var i = 0; i < bindings.length; i++) {
      var b = bindings[i];
      if (e.key.toLowerCase() !== b.key) continue;
      if (e.metaKey !== b.meta || e.ctrlKey !== b.ctrl || e.shiftKey !== b.shift || e.altKey !== b.alt) continue;
      e.preventDefault();
      if (b.action && window[b.action]) { window[b.action](); }
      else if (b.command) { document.execCommand(b.command); }
      return;
    }
  }, true);
})();`

// menuScript renders the menu accelerators as a keydown handler.
func menuScript(menus []Menu, goos string) (string, error) {
	bindings, err := menuBindings(menus, goos)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(bindings)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(keyScript, data), nil
}
