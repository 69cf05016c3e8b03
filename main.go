package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
)

// The webview must be created and run on the main thread.
func init() {
	runtime.LockOSThread()
}

var (
	flagDev    bool
	flagMCP    bool
	flagConfig string
	flagPort   int
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "samos-shell",
	Short: "Desktop shell for the Samos storage client",
	Long: `samos-shell starts the bundled nebula-client server, waits until it
listens and shows its web UI in a desktop window. Launching it again focuses
the running window instead of starting a second copy.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShell,
}

func init() {
	rootCmd.Flags().BoolVar(&flagDev, "dev", false, "resolve nebula-client from the source tree layout")
	rootCmd.Flags().BoolVar(&flagMCP, "mcp", false, "serve MCP tools over stdio for a running shell")
	rootCmd.Flags().StringVar(&flagConfig, "config", defaultConfigPath(), "path to the YAML config file")
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "port nebula-client serves on (overrides config)")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable the webview inspector")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "samos-shell:", err)
		os.Exit(1)
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if flagMCP {
		return runMCP(ctx)
	}

	cfg, err := LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	cfg.Dev = flagDev
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	cfg.Window.Debug = cfg.Window.Debug || flagDebug
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogging(cfg.LogLevel)
	defer closeLogging()
	logger := component("main")

	if done, err := handOff(); done || err != nil {
		return err
	}

	app, err := newShell(cfg)
	if err != nil {
		return err
	}

	ctrl, err := startControl(app)
	if err != nil {
		return err
	}
	defer func() {
		ctrl.Close()
		clearState()
		logger.Info().Msg("stopped")
	}()

	go func() {
		<-ctx.Done()
		app.Quit()
	}()

	return app.Run()
}

// newShell resolves the server binary and wires it to a new App.
func newShell(cfg Config) (*App, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	serverPath := cfg.ServerPath
	if serverPath == "" {
		serverPath = resolveServerPath(runtime.GOOS, exe, cfg.Dev)
	}
	icon := resolveIconPath(runtime.GOOS, exe, cfg.Dev)

	sup := &Supervisor{
		Path:   serverPath,
		Args:   serverArgs(cfg, serverPath),
		Marker: cfg.ReadyMarker,
		URL:    cfg.DefaultURL(),
	}

	app := NewApp(cfg, sup, func(u string, b Bindings) (Window, error) {
		w, err := newWebviewWindow(WindowOptions{
			Title:        cfg.Window.Title,
			Width:        cfg.Window.Width,
			Height:       cfg.Window.Height,
			Icon:         icon,
			Debug:        cfg.Window.Debug,
			URL:          u,
			AllowedHosts: cfg.AllowedHosts,
			GOOS:         runtime.GOOS,
		}, b, openBrowser)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
	sup.OnReady = app.OnSamosReady
	sup.OnExit = app.OnSamosExit
	return app, nil
}
