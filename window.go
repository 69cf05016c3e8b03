package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"unsafe"

	webview "github.com/webview/webview_go"
)

// Window is the browser window showing the samos web UI. Run must be called
// on the main thread; the other methods are safe from any goroutine.
type Window interface {
	Navigate(url string)
	Reload()
	Focus()
	Run()
	Close()
}

// WindowOptions configure a new window.
type WindowOptions struct {
	Title        string
	Width        int
	Height       int
	Icon         string
	Debug        bool
	URL          string
	AllowedHosts []string
	GOOS         string
}

// Bindings are Go functions exposed to the page as window.<name>.
type Bindings map[string]func()

// webviewWindow wraps a webview. It must be created on the main thread.
type webviewWindow struct {
	w webview.WebView

	mu        sync.Mutex
	destroyed bool
}

const guardScript = `(function(){
  window.eval = function(){ throw new Error('eval is disabled'); };
  var allowed = %s;
  var start = %q;
  function hostAllowed(h){
    if (h === '127.0.0.1' || h === 'localhost') return true;
    for (var i = 0; i < allowed.length; i++) {
      var p = allowed[i];
      if (p.indexOf('*.') === 0) { if (h.slice(-(p.length-1)) === p.slice(1)) return true; }
      else if (h === p) return true;
    }
    return false;
  }
  if (location.protocol.indexOf('http') === 0 && !hostAllowed(location.hostname)) {
    location.href = start;
    return;
  }
  document.addEventListener('click', function(e){
    var a = e.target && e.target.closest ? e.target.closest('a[href]') : null;
    if (!a) return;
    var u = new URL(a.href, location.href);
    if (u.origin === location.origin) return;
    e.preventDefault();
    window.openExternal(u.href);
  }, true);
})();`

// initScript builds the script injected into every page: eval removal,
// the navigation guard and the menu accelerators.
func initScript(opts WindowOptions) (string, error) {
	hosts, err := json.Marshal(opts.AllowedHosts)
	if err != nil {
		return "", err
	}
	keys, err := menuScript(applicationMenu(), opts.GOOS)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(guardScript, hosts, opts.URL) + "\n" + keys, nil
}

func newWebviewWindow(opts WindowOptions, bindings Bindings, openExternal func(string)) (*webviewWindow, error) {
	script, err := initScript(opts)
	if err != nil {
		return nil, fmt.Errorf("window script: %w", err)
	}

	w := webview.New(opts.Debug)
	if w == nil {
		return nil, fmt.Errorf("webview unavailable")
	}
	w.SetTitle(opts.Title)
	w.SetSize(opts.Width, opts.Height, webview.HintNone)
	if err := applyIcon(w.Window(), opts.Icon); err != nil {
		component("window").Warn().Err(err).Str("icon", opts.Icon).Msg("window icon not set")
	}
	w.Init(script)

	for name, fn := range bindings {
		if err := w.Bind(name, fn); err != nil {
			w.Destroy()
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
	}
	if err := w.Bind("openExternal", func(raw string) error {
		if !externalURL(raw) {
			return fmt.Errorf("refusing to open %q", raw)
		}
		openExternal(raw)
		return nil
	}); err != nil {
		w.Destroy()
		return nil, fmt.Errorf("bind openExternal: %w", err)
	}

	w.Navigate(opts.URL)
	return &webviewWindow{w: w}, nil
}

// applyIcon sets the window icon from path. An empty path means the platform
// has no icon file to apply.
func applyIcon(handle unsafe.Pointer, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("icon: %w", err)
	}
	return setWindowIcon(handle, path)
}

// dispatch runs f on the UI thread unless the window is gone.
func (ww *webviewWindow) dispatch(f func()) {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.destroyed {
		return
	}
	ww.w.Dispatch(f)
}

func (ww *webviewWindow) Navigate(u string) {
	ww.dispatch(func() { ww.w.Navigate(u) })
}

// Focus raises the page. webview has no portable window focus call, so the
// page is asked to focus itself.
func (ww *webviewWindow) Focus() {
	ww.dispatch(func() { ww.w.Eval("window.focus()") })
}

func (ww *webviewWindow) Reload() {
	ww.dispatch(func() { ww.w.Eval("location.reload()") })
}

func (ww *webviewWindow) Run() {
	ww.w.Run()
	ww.mu.Lock()
	ww.destroyed = true
	ww.w.Destroy()
	ww.mu.Unlock()
}

func (ww *webviewWindow) Close() {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if !ww.destroyed {
		ww.w.Terminate()
	}
}

// externalURL reports whether raw may be handed to the system browser.
func externalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// hostAllowed mirrors the page-side guard: loopback plus the configured
// patterns, where "*.example.com" matches any subdomain.
func hostAllowed(patterns []string, host string) bool {
	if host == "127.0.0.1" || host == "localhost" {
		return true
	}
	for _, p := range patterns {
		if suffix, ok := strings.CutPrefix(p, "*"); ok {
			if strings.HasSuffix(host, suffix) {
				return true
			}
		} else if host == p {
			return true
		}
	}
	return false
}
