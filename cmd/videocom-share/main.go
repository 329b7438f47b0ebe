// Package main provides the entry point for videocom-share, a command-line client that
// signs in to a VideoCom cloud host and publishes recordings as shareable links.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/buildinfo"
	"github.com/videocom/videocom-share/internal/cmd"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/logging"
	"github.com/videocom/videocom-share/internal/util"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	var login bool
	var logout bool
	var status bool
	var noBrowser bool
	var showVersion bool
	var configPath string
	var title string
	var format string
	var watchDir string

	flag.BoolVar(&login, "login", false, "Sign in to VideoCom without uploading")
	flag.BoolVar(&logout, "logout", false, "Remove the stored VideoCom credential")
	flag.BoolVar(&status, "status", false, "Show the stored credential state")
	flag.BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")
	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.StringVar(&title, "title", "", "Media title (defaults to the file name)")
	flag.StringVar(&format, "format", "", "Media format sent to VideoCom (defaults to the file extension)")
	flag.StringVar(&watchDir, "watch", "", "Upload new recordings that appear in this directory")

	flag.CommandLine.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage: %s [flags] [file ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("videocom-share Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return 0
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return 1
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	optional := configPath == ""
	if optional {
		configPath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configPath, optional)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return 1
	}

	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return 1
	}
	defer logging.Close()
	util.SetLogLevel(cfg)
	log.Debugf("videocom-share Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := &cmd.Options{
		NoBrowser: noBrowser,
		Title:     title,
		Format:    format,
	}

	switch {
	case logout:
		err = cmd.DoLogout(ctx, cfg, options)
	case status:
		err = cmd.DoStatus(ctx, cfg, options)
	case login:
		err = cmd.DoLogin(ctx, cfg, options)
	case watchDir != "":
		err = cmd.DoWatch(ctx, cfg, watchDir, options)
	case flag.NArg() > 0:
		err = cmd.DoUpload(ctx, cfg, flag.Args(), options)
	default:
		flag.CommandLine.Usage()
		return 2
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("interrupted")
			return 130
		}
		log.Errorf("%v", err)
		return 1
	}
	return 0
}
