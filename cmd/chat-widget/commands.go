package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chat-widget/internal/adapter/console"
	"chat-widget/internal/adapter/transport"
	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
	"chat-widget/internal/usecase"
)

func newSendCmd(flags *globalFlags) *cobra.Command {
	var (
		verbose     bool
		showSession bool
	)
	cmd := &cobra.Command{
		Use:   "send <text>...",
		Short: "Send one or more messages and print the replies",
		Long: `send submits each argument as its own message, in order, waiting for each
reply before sending the next so the backend session carries over.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			var ropts []console.Option
			if verbose {
				ropts = append(ropts, console.WithVerbose())
			}
			renderer := console.New(cmd.OutOrStdout(), ropts...)

			a, err := newApp(cmd.Context(), cfg, renderer)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.widget.Start(cmd.Context()); err != nil {
				return err
			}

			for _, text := range args {
				if _, err := a.widget.Submit(cmd.Context(), text); err != nil {
					if errors.Is(err, domain.ErrEmptyMessage) {
						continue
					}
					return err
				}
				// Wait for the reply so the next message carries its session.
				a.widget.Wait()
				if err := cmd.Context().Err(); err != nil {
					return err
				}
			}

			if showSession {
				if token, ok := a.widget.Session(); ok {
					fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", token)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also print pending markers")
	cmd.Flags().BoolVar(&showSession, "show-session", false, "print the session id assigned by the backend")
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation history kept by the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			renderer := console.New(cmd.OutOrStdout())
			a, err := newApp(cmd.Context(), cfg, renderer)
			if err != nil {
				return err
			}
			defer a.close()

			h := usecase.NewHydrator(a.transport, renderer, a.log.With("component", "history"))
			n, err := h.Hydrate(cmd.Context(), a.widget.Endpoint(), session)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no history")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "session id to request history for")
	return cmd
}

func newProbeCmd(flags *globalFlags) *cobra.Command {
	var timeout = config.Defaults().Widget.Probe.Timeout
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check whether the chat backend is reachable",
		Long: `probe sends a lightweight GET to the resolved endpoint. Any response below
500 counts as reachable. The exit status is non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Widget.Probe.Timeout = timeout
			}
			a, err := newApp(cmd.Context(), cfg, domain.NewEventRenderer(nil))
			if err != nil {
				return err
			}
			defer a.close()

			endpoint := a.widget.Endpoint()
			p := usecase.NewProber(a.transport, cfg.Widget.Probe.Timeout, a.log.With("component", "probe"))
			if !p.Check(cmd.Context(), endpoint) {
				return fmt.Errorf("%s: %w", endpoint, domain.ErrProbeFailed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reachable\n", endpoint)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", timeout, "give up after this long")
	return cmd
}

func newResolveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the endpoint the widget would talk to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			w := cfg.Widget
			signals := usecase.NewEndpointConfig(w.APIURL, w.PageURL, w.HostingPatterns)
			endpoint := usecase.ResolveEndpoint(signals, usecase.PolicyFromConfig(w))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "endpoint: %s\n", endpoint)
			fmt.Fprintf(out, "history:  %s\n", transport.HistoryURL(endpoint))
			if origin := usecase.OriginHint(signals, w.OriginHint); origin != "" {
				fmt.Fprintf(out, "origin:   %s\n", origin)
			}
			return nil
		},
	}
}
