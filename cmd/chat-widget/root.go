package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chat-widget/internal/adapter/tui/chat"
	"chat-widget/internal/infra/logger"
)

// globalFlags override values from the config file and environment.
type globalFlags struct {
	configPath  string
	apiURL      string
	pageURL     string
	credentials string
	probe       bool
	metricsAddr string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "chat-widget",
		Short: "Terminal chat widget for a conversational backend",
		Long: `chat-widget opens a floating chat window that exchanges messages with a
chat backend over HTTP. The endpoint is resolved from --api-url, the host
page URL and the configured hosting patterns.

Press ctrl+o to open or hide the window, enter to send, esc to close.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "config.yaml", "path to the YAML config file")
	pf.StringVar(&flags.apiURL, "api-url", "", "explicit chat endpoint (absolute or relative to the page)")
	pf.StringVar(&flags.pageURL, "page-url", "", "URL of the host page the widget is embedded in")
	pf.StringVar(&flags.credentials, "credentials", "", "cookie handling for backend requests: omit or include")
	pf.BoolVar(&flags.probe, "probe", false, "check backend reachability before enabling the widget")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newSendCmd(flags),
		newHistoryCmd(flags),
		newProbeCmd(flags),
		newResolveCmd(flags),
	)
	return root
}

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}
	// The alt screen owns the terminal; keep log lines off it.
	if cfg.Logger.Output == logger.OutputStdout || cfg.Logger.Output == logger.OutputStderr {
		cfg.Logger.Output = logger.OutputDiscard
	}

	renderer := chat.NewProgramRenderer()
	a, err := newApp(cmd.Context(), cfg, renderer)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.widget.Start(cmd.Context()); err != nil {
		a.log.Warn("starting without a reachable backend", "error", err)
	}

	err = chat.Run(cmd.Context(), a.widget, renderer, chat.Options{
		Title:    cfg.Widget.Title,
		Greeting: cfg.Widget.Greeting,
		Logger:   a.log.With("component", "tui"),
	})
	if err != nil {
		return fmt.Errorf("chat window: %w", err)
	}
	return nil
}
