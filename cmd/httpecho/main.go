package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/httpecho/httpecho/common"
	"github.com/httpecho/httpecho/echo"
	"github.com/httpecho/httpecho/util"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		recvSig := <-sig
		log.Warn().Msgf("caught signal: %v", recvSig)
		cancel()
	}()

	if err := newCommand(afero.NewOsFs()).Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("failed to start echo server")
		util.OsExit(exitCodeFor(err))
	}
}

func newCommand(fs afero.Fs) *cli.Command {
	return &cli.Command{
		Name:    "httpecho",
		Usage:   "HTTP/HTTPS server that answers every request with a JSON description of it",
		Version: common.Version + " (" + common.CommitSha + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "dotenv file loaded before reading the environment, ignored if missing",
				Value:   ".env",
				Sources: cli.EnvVars("ECHO_ENV_FILE"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides LOG_LEVEL",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "overrides LOG_FORMAT (json or console)",
			},
		},
		Action: start(fs),
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "start the echo server (default)",
				Action: start(fs),
			},
			{
				Name:   "validate",
				Usage:  "load and validate the configuration, then exit",
				Action: validate(fs),
			},
		},
	}
}

func start(fs afero.Fs) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, logger, err := loadConfig(fs, cmd)
		if err != nil {
			return err
		}
		lc, err := echo.Init(ctx, fs, cfg, &logger)
		if err != nil {
			return err
		}
		return lc.Wait()
	}
}

func validate(fs afero.Fs) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, logger, err := loadConfig(fs, cmd)
		if err != nil {
			return err
		}
		return AnalyseConfig(fs, cfg, logger)
	}
}

// loadConfig merges the dotenv file under the process environment, so that
// variables already set always win, and builds the root logger.
func loadConfig(fs afero.Fs, cmd *cli.Command) (*common.Config, zerolog.Logger, error) {
	env := common.EnvironMap(os.Environ())

	if envFile := cmd.String("env-file"); envFile != "" {
		if ok, _ := afero.Exists(fs, envFile); ok {
			vars, err := readEnvFile(fs, envFile)
			if err != nil {
				return nil, log.Logger, common.NewErrInvalidConfig("cannot parse env file " + envFile + ": " + err.Error())
			}
			for k, v := range vars {
				if _, exists := env[k]; !exists {
					env[k] = v
				}
			}
			log.Info().Msgf("loaded environment from %s", envFile)
		}
	}

	if v := cmd.String("log-level"); v != "" {
		env["LOG_LEVEL"] = v
	}
	if v := cmd.String("log-format"); v != "" {
		env["LOG_FORMAT"] = v
	}

	cfg, err := common.LoadConfig(env)
	if err != nil {
		return nil, log.Logger, err
	}

	return cfg, newLogger(cfg), nil
}

func readEnvFile(fs afero.Fs, path string) (map[string]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}

func newLogger(cfg *common.Config) zerolog.Logger {
	logger := log.Logger
	if cfg.LogFormat == common.LogFormatConsole {
		logger = logger.Output(zerolog.NewConsoleWriter())
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		logger.Warn().Msgf("invalid log level '%s', defaulting to 'info'", cfg.LogLevel)
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func exitCodeFor(err error) int {
	var cfgErr *common.ErrInvalidConfig
	if errors.As(err, &cfgErr) {
		return util.ExitCodeInvalidConfig
	}
	return util.ExitCodeStartFailed
}
