package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/chatclient/console"
	"github.com/cyberinferno/chatclient/eventloop"
	"github.com/cyberinferno/chatclient/interrupt"
	"github.com/cyberinferno/chatclient/logger"
	"github.com/cyberinferno/chatclient/session"
	"github.com/cyberinferno/chatclient/transport"
)

const component = "chatclient"

var errSessionFailed = errors.New("session failed")

type options struct {
	logLevel         string
	logDir           string
	connectTimeout   time.Duration
	writeTimeout     time.Duration
	frameReadTimeout time.Duration
}

func newRootCommand(stdin *os.File, stdout, stderr io.Writer) *cobra.Command {
	defaults := session.DefaultConfig()
	opts := options{
		logLevel:         "warn",
		connectTimeout:   defaults.ConnectTimeout,
		writeTimeout:     defaults.WriteTimeout,
		frameReadTimeout: defaults.FrameReadTimeout,
	}

	cmd := &cobra.Command{
		Use:   "chatclient <server IP> <port>",
		Short: "Chat with a length-prefixed TCP chat server",
		Long: `chatclient connects to a chat server at a dotted-decimal IPv4 address and a
port in [1024, 65535], asks for a username and then relays chat lines.

Type "bye" to leave. End of input or an interrupt also ends the session.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("%w: usage: %s", transport.ErrArgument, cmd.UseLine())
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], args[1], opts, stdin, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.logLevel, "log-level", opts.logLevel, "diagnostic log level (debug, info, warn, error)")
	flags.StringVar(&opts.logDir, "log-dir", "", "write diagnostics to daily files in this directory instead of stderr")
	flags.DurationVar(&opts.connectTimeout, "connect-timeout", opts.connectTimeout, "limit for connecting and for the handshake")
	flags.DurationVar(&opts.writeTimeout, "write-timeout", opts.writeTimeout, "limit for sending one message (0 disables)")
	flags.DurationVar(&opts.frameReadTimeout, "read-timeout", opts.frameReadTimeout, "limit for receiving one message once it started arriving (0 disables)")

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd
}

func (o options) config() session.Config {
	cfg := session.DefaultConfig()
	cfg.ConnectTimeout = o.connectTimeout
	cfg.WriteTimeout = o.writeTimeout
	cfg.FrameReadTimeout = o.frameReadTimeout
	return cfg
}

func (o options) newLogger(stderr io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}

	if o.logDir != "" {
		return logger.NewFileLogger(component, o.logDir, level)
	}

	return logger.NewConsoleLogger(stderr, component, level), nil
}

func run(ctx context.Context, host, port string, opts options, stdin *os.File, stdout, stderr io.Writer) error {
	addr, err := transport.ParseAddress(host, port)
	if err != nil {
		return err
	}

	log, err := opts.newLogger(stderr)
	if err != nil {
		return err
	}
	defer log.Close()

	cfg := opts.config()
	keyboard := console.NewLineReader(stdin)

	name, err := console.PromptUsername(keyboard, stdout, stderr, cfg.MaxNameLen)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Hello, %s\nLet's try to connect to the server.\n", name)

	cancel, err := interrupt.New()
	if err != nil {
		return err
	}
	defer cancel.Close()

	stop := cancel.Watch(os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, release := cancel.Context(ctx)
	s, err := session.Connect(connectCtx, addr, name, cfg, session.Output{Out: stdout, Err: stderr}, log)
	release()
	if err != nil {
		if cancel.Requested() {
			fmt.Fprintln(stdout, "\nInterrupt received. Closing connection.")
			return nil
		}

		return err
	}

	conn, ok := s.Conn().(syscall.Conn)
	if !ok {
		_ = s.Close()
		return errors.New("connection does not expose a descriptor")
	}

	poller, err := eventloop.NewFDPoller(stdin, conn, cancel.WakeFile())
	if err != nil {
		_ = s.Close()
		return err
	}

	reason := eventloop.New(s, keyboard, poller, cancel, log).Run()
	if !reason.Graceful() {
		return fmt.Errorf("%w: %s", errSessionFailed, reason)
	}

	return nil
}
