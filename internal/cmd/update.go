package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/hotswap/internal/apply"
	"github.com/adamancini/hotswap/internal/config"
	"github.com/adamancini/hotswap/internal/failure"
	"github.com/adamancini/hotswap/internal/fetch"
	"github.com/adamancini/hotswap/internal/launch"
	"github.com/adamancini/hotswap/internal/output"
	"github.com/adamancini/hotswap/internal/progress"
	"github.com/adamancini/hotswap/internal/reaper"
	"github.com/adamancini/hotswap/internal/templates"
	"github.com/adamancini/hotswap/internal/types"
	"github.com/adamancini/hotswap/internal/updater"
)

// updateFlags holds the root command's update switches.
type updateFlags struct {
	appName     string
	processName string
	rootPath    string
	url         string
	proxy       string
	hash        string
	localSrc    string
	launchFile  string
	launchArgs  string
	mode        string
	configPath  string
	baseDir     string
	timeout     time.Duration
	resultFile  string

	// changed reports whether a flag was set explicitly. Nil means none was.
	changed func(name string) bool
}

func (f *updateFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.appName, "name", "", "Target application display name")
	fl.StringVar(&f.processName, "process", "", "Target process name to stop before updating")
	fl.StringVar(&f.rootPath, "root-path", "./", "Target root directory, relative to the base directory")
	fl.StringVarP(&f.url, "url", "u", "", "Download URL of the update archive (online update)")
	fl.StringVarP(&f.proxy, "proxy", "p", "", "Download proxy (http://, https:// or socks5://)")
	fl.StringVarP(&f.hash, "hash", "v", "", "Expected MD5 or SHA-256 of the downloaded archive")
	fl.StringVar(&f.hash, "md5", "", "Alias for --hash")
	fl.StringVar(&f.localSrc, "local-src", "", "Local update archive (offline update), relative to the base directory")
	fl.StringVar(&f.launchFile, "launch", "", "File to start after a successful update")
	fl.StringVar(&f.launchArgs, "launch-args", "", "Arguments for --launch, shell-quoted")
	fl.StringVarP(&f.mode, "mode", "m", string(types.ModeOverwriteFiles), "Update mode: overwrite or delete-all")
	fl.StringVar(&f.configPath, "config", "", "Path to config file")
	fl.StringVar(&f.baseDir, "base-dir", "", "Base directory for relative paths (default: the hotswap executable's directory)")
	fl.DurationVar(&f.timeout, "termination-timeout", reaper.DefaultTimeout, "How long to wait for the target process to exit")
	fl.StringVar(&f.resultFile, "result-file", "", "Also write the update report to this file")
	_ = fl.MarkHidden("md5")
}

func (f *updateFlags) isSet(names ...string) bool {
	if f.changed == nil {
		return false
	}
	for _, n := range names {
		if f.changed(n) {
			return true
		}
	}
	return false
}

// settings are the flags merged with the config file.
type settings struct {
	baseDir     string
	request     updater.Request
	timeout     time.Duration
	selfPattern string
	text        templates.Set
	noArgs      noArgsAction
}

type noArgsAction struct {
	launchFile string
	launchArgs string
	message    string
}

// pick returns the flag value when it was set explicitly, otherwise the
// config value when there is one, otherwise the flag's default.
func pick(flagSet bool, flagValue, configValue string) string {
	if flagSet || configValue == "" {
		return flagValue
	}
	return configValue
}

// resolveSettings merges explicit flags, the config file and defaults.
func resolveSettings(f *updateFlags) (*settings, error) {
	base, err := resolveBaseDir(f.baseDir)
	if err != nil {
		return nil, failure.Wrap(failure.KindConfiguration, "base dir", err)
	}

	cfg := &config.File{}
	cfgPath, err := config.FindConfig(f.configPath, base)
	switch {
	case errors.Is(err, config.ErrNoConfig):
		log.Debugf("no config file in %s", base)
	case err != nil:
		return nil, failure.Wrap(failure.KindConfiguration, "config", err)
	default:
		log.Infof("using config file %s", cfgPath)
		if cfg, err = config.Load(cfgPath); err != nil {
			return nil, failure.Wrap(failure.KindConfiguration, "config", err)
		}
	}

	modeText := pick(f.isSet("mode"), f.mode, cfg.UpdateMode)
	mode, err := types.ParseUpdateMode(modeText)
	if err != nil {
		return nil, failure.Wrap(failure.KindConfiguration, "mode", err)
	}

	timeout := f.timeout
	if !f.isSet("termination-timeout") {
		if d, _ := cfg.Timeout(); d > 0 {
			timeout = d
		}
	}

	s := &settings{
		baseDir:     base,
		timeout:     timeout,
		selfPattern: cfg.SelfPattern,
		text:        cfg.Text,
		noArgs: noArgsAction{
			launchFile: cfg.NoArgsLaunchFile,
			launchArgs: cfg.NoArgsLaunchArgs,
			message:    cfg.NoArgsMessage,
		},
		request: updater.Request{
			AppName:     pick(f.isSet("name"), f.appName, cfg.TargetAppName),
			ProcessName: pick(f.isSet("process"), f.processName, cfg.TargetProcessName),
			RootPath:    resolveAgainst(base, pick(f.isSet("root-path"), f.rootPath, cfg.TargetRootPath)),
			LaunchFile:  pick(f.isSet("launch"), f.launchFile, cfg.LaunchFile),
			LaunchArgs:  pick(f.isSet("launch-args"), f.launchArgs, cfg.LaunchArgs),
			LaunchDir:   base,
			Mode:        mode,
			Source: updater.Source{
				URL:   f.url,
				Proxy: pick(f.isSet("proxy"), f.proxy, cfg.DownloadProxy),
				Hash:  f.hash,
			},
		},
	}
	if f.localSrc != "" {
		s.request.Source.LocalFile = resolveAgainst(base, f.localSrc)
	}
	return s, nil
}

// runUpdate is the root command: one full update run.
func runUpdate(ctx context.Context, stdout, stderr io.Writer, f *updateFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	s, err := resolveSettings(f)
	if err != nil {
		return err
	}

	if s.request.SourceRef() == "" && s.noArgs.handled() {
		return s.noArgs.run(stdout, s.baseDir, s.text)
	}

	sinks := []progress.Sink{progress.LogSink{Logger: log.StandardLogger()}}
	var (
		em      *progress.Emitter
		drained chan struct{}
		console *progress.Console
	)
	if !quiet && format == output.FormatText {
		em = progress.NewEmitter(0)
		console = progress.NewConsole(stderr)
		drained = make(chan struct{})
		go func() {
			defer close(drained)
			console.Drain(em.Events())
		}()
		sinks = append(sinks, em)
	}
	sink := progress.Tee(sinks...)

	acq, err := fetch.New(fetch.Options{
		Proxy:    s.request.Source.Proxy,
		Version:  hotswapVersion,
		Progress: sink,
	})
	if err != nil && s.request.Online() {
		return &exitError{kind: failure.KindOf(err), err: err}
	}

	opts := updater.Options{
		Terminator: reaper.New(s.timeout),
		Applier: apply.New(apply.Options{
			SelfPattern:    s.selfPattern,
			Progress:       sink,
			ExtractingText: s.text.Get(templates.Extracting),
		}),
		Progress: sink,
		Text:     s.text,
	}
	if acq != nil {
		opts.Acquirer = acq
	}

	report, runErr := updater.New(s.request, opts).Run(ctx)

	if em != nil {
		em.Close()
		<-drained
		console.Finish()
		if n := em.Dropped(); n > 0 {
			log.Debugf("progress display skipped %d events", n)
		}
	}

	if report != nil {
		if err := output.NewWriter(stdout, format).Write(report); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		if f.resultFile != "" {
			path := resolveAgainst(s.baseDir, f.resultFile)
			if err := output.WriteFile(path, output.FormatFor(path, format), report); err != nil {
				log.Errorf("write result file: %v", err)
			}
		}
	}

	if runErr != nil {
		return &exitError{kind: failure.KindOf(runErr), err: runErr}
	}
	return nil
}

func (a noArgsAction) handled() bool {
	return a.launchFile != "" || a.message != ""
}

// run is what hotswap does when started without an update source: start
// the configured program and/or print the configured message.
func (a noArgsAction) run(stdout io.Writer, baseDir string, text templates.Set) error {
	if a.launchFile != "" {
		pid, err := launch.Start(a.launchFile, a.launchArgs, baseDir)
		if err != nil {
			msg := templates.Render(text.Get(templates.LaunchError), templates.Vars{ExceptionMessage: err.Error()})
			return &exitError{kind: failure.KindLaunch, err: errors.New(msg)}
		}
		log.Infof("no update source given, started %s (pid %d)", a.launchFile, pid)
	}
	if a.message != "" {
		fmt.Fprintln(stdout, a.message)
	}
	return nil
}
