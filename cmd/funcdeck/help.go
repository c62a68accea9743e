// ABOUTME: Help display for the funcdeck CLI with grouped flags, examples, and environment status.
// ABOUTME: Provides printHelp for usage output and envStatus for configuration detection.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/2389-research/funcdeck/scene/server"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples, and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "funcdeck %s: MBDyn scalar function editor and deck writer\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  funcdeck <scene.yaml>                Write the scene's deck to stdout")
	fmt.Fprintln(w, "  funcdeck -o deck.mbd <scene.yaml>    Write the deck to a file")
	fmt.Fprintln(w, "  funcdeck -validate <scene.yaml>      Check the scene without writing")
	fmt.Fprintln(w, "  funcdeck -export-yaml <scene.yaml>   Re-emit the scene as normalized YAML")
	fmt.Fprintln(w, "  funcdeck -export-dot <scene.yaml>    Write the link graph as Graphviz DOT")
	fmt.Fprintln(w, "  funcdeck -tui [scene.yaml]           Edit in the terminal editor")
	fmt.Fprintln(w, "  funcdeck -server [-bind addr]        Start the HTTP API and scene index")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Output Flags:")
	fmt.Fprintln(w, "  -o <file>             Output path (default: stdout; in -tui, <scene>.mbd)")
	fmt.Fprintln(w, "  -validate             Validate the scene file only")
	fmt.Fprintln(w, "  -export-yaml          Write YAML instead of the deck")
	fmt.Fprintln(w, "  -export-dot           Write the link graph instead of the deck")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Editor and Server Flags:")
	fmt.Fprintln(w, "  -tui                  Interactive terminal editor")
	fmt.Fprintln(w, "  -server               Start HTTP server mode")
	fmt.Fprintf(w, "  -bind <addr>          Listen address (default: %s)\n", server.DefaultBind)
	fmt.Fprintln(w, "  -data-dir <dir>       Persistent scene directory (default: $XDG_DATA_HOME/funcdeck)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -version              Print version and exit")
	fmt.Fprintln(w, "  -help                 Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  funcdeck examples/pendulum.yaml > pendulum.mbd")
	fmt.Fprintln(w, "  funcdeck -validate examples/pendulum.yaml")
	fmt.Fprintln(w, "  funcdeck -export-dot examples/pendulum.yaml | dot -Tsvg > pendulum.svg")
	fmt.Fprintln(w, "  funcdeck -tui -o rig.mbd examples/pendulum.yaml")
	fmt.Fprintln(w, "  funcdeck -server -bind 127.0.0.1:8080")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  FUNCDECK_HOME         %s\n", envStatus("FUNCDECK_HOME"))
	fmt.Fprintf(w, "  FUNCDECK_BIND         %s\n", envStatus("FUNCDECK_BIND"))
	fmt.Fprintf(w, "  FUNCDECK_ALLOW_REMOTE %s\n", envStatus("FUNCDECK_ALLOW_REMOTE"))
	fmt.Fprintf(w, "  FUNCDECK_AUTH_TOKEN   %s\n", envStatus("FUNCDECK_AUTH_TOKEN"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Remote binds need FUNCDECK_ALLOW_REMOTE=true and FUNCDECK_AUTH_TOKEN.")
	fmt.Fprintln(w, "  A .env file in the working directory is read first and never overrides the environment.")
}

// envStatus returns "[set]" if the named environment variable is non-empty,
// or "[not set]" otherwise.
func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "[set]"
	}
	return "[not set]"
}
