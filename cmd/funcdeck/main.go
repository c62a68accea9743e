// ABOUTME: CLI entrypoint for funcdeck with deck, validate, export, terminal editor, and server modes.
// ABOUTME: Wires the YAML scene codec, the deck writer, the Bubble Tea editor, and the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
	"github.com/2389-research/funcdeck/scene/render"
	"github.com/2389-research/funcdeck/scene/server"
	"github.com/2389-research/funcdeck/scene/store"
	"github.com/2389-research/funcdeck/scene/web"
	"github.com/2389-research/funcdeck/tui"
)

var version = "dev"

const (
	// Edit sessions idle longer than sessionTTL are dropped.
	sessionTTL      = 30 * time.Minute
	maxSessions     = 256
	cleanupInterval = time.Minute
)

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	output       string
	validateOnly bool
	exportYAML   bool
	exportDOT    bool
	tuiMode      bool
	serverMode   bool
	bind         string
	dataDir      string
	showVersion  bool
	sceneFile    string
}

func main() {
	if err := server.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if cfg.showVersion {
		fmt.Printf("funcdeck %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg, os.Stdout, os.Stderr))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config

	fs := flag.NewFlagSet("funcdeck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.output, "o", "", "Write the deck (or YAML with -export-yaml) to this file instead of stdout")
	fs.BoolVar(&cfg.validateOnly, "validate", false, "Validate the scene file without writing a deck")
	fs.BoolVar(&cfg.exportYAML, "export-yaml", false, "Re-emit the scene file as normalized YAML")
	fs.BoolVar(&cfg.exportDOT, "export-dot", false, "Write the function link graph as Graphviz DOT")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Edit the scene in the interactive terminal editor")
	fs.BoolVar(&cfg.serverMode, "server", false, "Start the HTTP server")
	fs.StringVar(&cfg.bind, "bind", "", "Server listen address (default: $FUNCDECK_BIND or "+server.DefaultBind+")")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for persistent scenes (default: $FUNCDECK_HOME or $XDG_DATA_HOME/funcdeck)")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		cfg.sceneFile = fs.Arg(0)
	}
	return cfg, nil
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg config, stdout, stderr io.Writer) int {
	if cfg.serverMode {
		return runServer(cfg, stderr)
	}
	if cfg.tuiMode {
		return runTUI(cfg, stderr)
	}

	if cfg.sceneFile == "" {
		printHelp(stderr, version)
		return 0
	}

	state, err := loadSceneFile(cfg.sceneFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	switch {
	case cfg.validateOnly:
		return validateScene(cfg, state, stderr)
	case cfg.exportYAML:
		text, err := export.ExportSceneYAML(state)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return writeOutput(cfg.output, text, stdout, stderr)
	case cfg.exportDOT:
		return writeOutput(cfg.output, render.LinkGraphDOT(state), stdout, stderr)
	}

	deck, err := export.RenderDeck(state)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return writeOutput(cfg.output, deck, stdout, stderr)
}

// loadSceneFile reads and applies a YAML scene file.
func loadSceneFile(path string) (*core.SceneState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	state, err := export.LoadSceneYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return state, nil
}

// validateScene checks that every function of a loaded scene renders.
func validateScene(cfg config, state *core.SceneState, stderr io.Writer) int {
	if _, err := export.RenderDeck(state); err != nil {
		fmt.Fprintf(stderr, "[error] %s: %v\n", cfg.sceneFile, err)
		return 1
	}
	fmt.Fprintf(stderr, "%s: valid (%d functions)\n", cfg.sceneFile, len(state.Functions))
	return 0
}

// writeOutput writes text to path, or to stdout when path is empty.
func writeOutput(path, text string, stdout, stderr io.Writer) int {
	if path == "" {
		if _, err := io.WriteString(stdout, text); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// sceneCommands returns the commands that create the scene for the editor
// and server: the scene file's contents, or an empty untitled scene.
func sceneCommands(path string) ([]core.Command, error) {
	if path == "" {
		return []core.Command{core.CreateSceneCommand{Title: "untitled"}}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	scene, err := export.ParseSceneYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cmds, err := scene.Commands()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// resolveDataDir picks the data directory: the -data-dir flag, then
// FUNCDECK_HOME, then the XDG default.
func resolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if home := os.Getenv("FUNCDECK_HOME"); home != "" {
		return home, nil
	}
	return defaultDataDir()
}

// openAppState restores the persisted scenes under dataDir.
func openAppState(dataDir string, snapshotEvery int) (*server.AppState, error) {
	storage, err := store.NewStorageManager(dataDir)
	if err != nil {
		return nil, err
	}
	state := server.NewAppState(storage, snapshotEvery)
	if _, err := state.RestoreScenes(); err != nil {
		return nil, err
	}
	return state, nil
}

// deckPathFor picks where the editor writes the deck: -o, or the scene
// file with a .mbd extension.
func deckPathFor(cfg config) string {
	if cfg.output != "" || cfg.sceneFile == "" {
		return cfg.output
	}
	return strings.TrimSuffix(cfg.sceneFile, filepath.Ext(cfg.sceneFile)) + ".mbd"
}

// runTUI creates a persisted scene from the scene file (or an empty one)
// and opens it in the terminal editor.
func runTUI(cfg config, stderr io.Writer) int {
	dataDir, err := resolveDataDir(cfg.dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	cmds, err := sceneCommands(cfg.sceneFile)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	// Log lines would tear the alternate screen; send them to a file.
	logFile, err := os.OpenFile(filepath.Join(dataDir, "funcdeck.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = logFile.Close() }()
	log.SetOutput(logFile)
	defer log.SetOutput(os.Stderr)

	app, err := openAppState(dataDir, server.DefaultSnapshotEvery)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer app.StopAllEventPersisters()

	sceneID, err := app.CreateScene(cmds...)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	sessions := editor.NewStore(maxSessions, sessionTTL)
	model := tui.NewAppModel(app.GetActor(sceneID), sessions, deckPathFor(cfg))

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	// The final model holds any session left open when the program quit.
	if fm, ok := final.(tui.AppModel); ok {
		fm.Close()
	} else {
		model.Close()
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stderr, "scene %s saved under %s\n", sceneID, dataDir)
	return 0
}

// buildServer loads configuration, restores persisted scenes, and creates
// the HTTP handler. A scene file, when given, is added as a new scene.
func buildServer(cfg config) (*server.FuncdeckConfig, *server.AppState, *editor.Store, http.Handler, error) {
	srvCfg, err := server.ConfigFromEnv()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cfg.bind != "" {
		srvCfg.Bind = cfg.bind
		if err := srvCfg.Validate(); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	srvCfg.Home, err = resolveDataDir(cfg.dataDir)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	app, err := openAppState(srvCfg.Home, srvCfg.SnapshotEvery)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cfg.sceneFile != "" {
		cmds, err := sceneCommands(cfg.sceneFile)
		if err == nil {
			_, err = app.CreateScene(cmds...)
		}
		if err != nil {
			app.StopAllEventPersisters()
			return nil, nil, nil, nil, err
		}
	}

	sessions := editor.NewStore(maxSessions, sessionTTL)
	var opts []web.ServerOption
	if srvCfg.AuthToken != "" {
		opts = append(opts, web.WithAuthToken(srvCfg.AuthToken))
	}
	return srvCfg, app, sessions, web.NewServer(app, sessions, opts...), nil
}

// runServer serves the HTTP API until interrupted.
func runServer(cfg config, stderr io.Writer) int {
	srvCfg, app, sessions, handler, err := buildServer(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer app.StopAllEventPersisters()
	stopCleanup := sessions.StartCleanup(cleanupInterval)
	defer stopCleanup()

	// Set up context with signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:              srvCfg.Bind,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("component=funcdeck action=listen addr=%s data_dir=%s scenes=%d", srvCfg.Bind, srvCfg.Home, len(app.ListActorIDs()))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
