// Package servecmder provides the serve command for running the relay server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kosar/responses-api/pkg/config"
	"github.com/kosar/responses-api/pkg/logger"
	"github.com/kosar/responses-api/pkg/upstream"
	"github.com/kosar/responses-api/relay"
)

type ServeCommander struct {
	listen   string
	upstream string
	model    string
	brokers  []string
	topic    string
	apiKey   string
	debug    bool
	logger   *zap.Logger
}

const serveLongDesc string = `Run the relay server.

The relay serves the browser chat UI and the /api/chat endpoint, which
opens one upstream Responses API session per request and re-emits its
events as server-sent event frames.

The upstream API key is read from RESPCHAT_UPSTREAM_API_KEY (or
OPENAI_API_KEY as a fallback).`

const serveShortDesc string = "Run the relay server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagListen,
				config.FlagUpstream,
				config.FlagModel,
				config.FlagBrokers,
				config.FlagTopic,
			})

			cmder.listen = v.GetString("relay.listen")
			cmder.upstream = v.GetString("upstream.url")
			cmder.model = v.GetString("upstream.model")
			cmder.brokers = v.GetStringSlice("eventstream.brokers")
			cmder.topic = v.GetString("eventstream.topic")

			cmder.apiKey = v.GetString("upstream.api_key")
			if cmder.apiKey == "" {
				cmder.apiKey = os.Getenv("OPENAI_API_KEY")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringSliceFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	relayConfig := relay.Config{
		ListenAddr: c.listen,
		Upstream: upstream.Config{
			BaseURL: c.upstream,
			APIKey:  c.apiKey,
			Model:   c.model,
		},
		Brokers: c.brokers,
		Topic:   c.topic,
	}

	server, err := relay.New(relayConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating relay: %w", err)
	}

	c.logger.Info("starting relay",
		zap.String("listen", c.listen),
		zap.String("upstream", c.upstream),
		zap.String("model", c.model),
		zap.Int("brokers", len(c.brokers)),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("relay error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		_ = server.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("shutting down", zap.String("signal", sig.String()))
		return server.Close()
	}
}
