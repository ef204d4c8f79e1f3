// Command herald is the CivicWatch terminal companion. Run without
// arguments it opens the full-screen client; subcommands cover
// headless use from scripts and shell prompts.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/civicwatch/herald/internal/cmd"
)

// version is stamped by the release build.
var version = "0.4.0"

const usage = `Herald, the CivicWatch companion

Usage:
  herald              Open the full-screen client
  herald status       Print notification state
  herald check        Poll for new badges once
  herald push on|off  Enable or disable push notifications
  herald serve        Run the control API without the TUI
  herald version      Print the version

Flags:
  -dir path    Settings directory (default: user home)
  -serve addr  Expose the control API while the client runs
  -addr addr   Listen address for serve (default: :7381)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := ""
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "":
		fs := flag.NewFlagSet("herald", flag.ExitOnError)
		dir := fs.String("dir", "", "settings directory")
		serveAddr := fs.String("serve", "", "expose the control API on this address")
		fs.Parse(args)
		return cmd.RunApp(cmd.AppOptions{BaseDir: *dir, ServeAddr: *serveAddr})

	case "status":
		fs := flag.NewFlagSet("herald status", flag.ExitOnError)
		dir := fs.String("dir", "", "settings directory")
		fs.Parse(args)
		return cmd.RunStatus(cmd.StatusOptions{BaseDir: *dir})

	case "check":
		fs := flag.NewFlagSet("herald check", flag.ExitOnError)
		dir := fs.String("dir", "", "settings directory")
		fs.Parse(args)
		return cmd.RunCheck(cmd.CheckOptions{BaseDir: *dir})

	case "push":
		fs := flag.NewFlagSet("herald push", flag.ExitOnError)
		dir := fs.String("dir", "", "settings directory")
		fs.Parse(args)
		switch fs.Arg(0) {
		case "on":
			return cmd.RunPush(cmd.PushOptions{BaseDir: *dir, Enable: true})
		case "off":
			return cmd.RunPush(cmd.PushOptions{BaseDir: *dir, Enable: false})
		}
		return fmt.Errorf("usage: herald push on|off")

	case "serve":
		fs := flag.NewFlagSet("herald serve", flag.ExitOnError)
		dir := fs.String("dir", "", "settings directory")
		addr := fs.String("addr", "", "listen address")
		fs.Parse(args)
		return cmd.RunServe(cmd.ServeOptions{Addr: *addr, BaseDir: *dir})

	case "version":
		fmt.Println("herald " + version)
		return nil

	case "help":
		fmt.Print(usage)
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", command)
}
