package main

import (
	"github.com/dustin/go-humanize"
	"github.com/httpecho/httpecho/common"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// AnalyseConfig prints what the server would do with the given configuration.
func AnalyseConfig(fs afero.Fs, cfg *common.Config, logger zerolog.Logger) error {
	stats := calculateConfigStats(fs, cfg)
	printConfigStats(logger, stats)

	if stats.OverrideBodyPath != "" && !stats.OverrideBodyFound {
		return common.NewErrInvalidConfig("OVERRIDE_RESPONSE_BODY_FILE_PATH points to a missing file: " + stats.OverrideBodyPath)
	}
	return nil
}

type ConfigStats struct {
	HttpPort          int
	HttpsPort         int
	HttpsEnabled      bool
	MtlsEnabled       bool
	MaxBodySize       string
	OverrideBodyPath  string
	OverrideBodyFound bool
	CorsEnabled       bool
	MetricsPath       string
	TracingEndpoint   string
}

func calculateConfigStats(fs afero.Fs, cfg *common.Config) ConfigStats {
	stats := ConfigStats{
		HttpPort:     cfg.Server.HttpPort,
		HttpsPort:    cfg.Server.HttpsPort,
		HttpsEnabled: common.HttpsFilesPresent(fs, cfg.Server),
		MtlsEnabled:  cfg.Server.MtlsEnabled,
		MaxBodySize:  "unlimited",
		CorsEnabled:  cfg.CORS.Enabled(),
	}
	if cfg.Echo.MaxBodySize > 0 {
		stats.MaxBodySize = humanize.IBytes(uint64(cfg.Echo.MaxBodySize))
	}
	if path := cfg.Echo.OverrideResponseBodyFilePath; path != "" {
		stats.OverrideBodyPath = path
		stats.OverrideBodyFound, _ = afero.Exists(fs, path)
	}
	if cfg.Metrics.Enabled {
		stats.MetricsPath = cfg.Metrics.Path
	}
	if cfg.Tracing.Enabled {
		stats.TracingEndpoint = cfg.Tracing.Endpoint
	}
	return stats
}

func printConfigStats(logger zerolog.Logger, stats ConfigStats) {
	logger.Info().Msgf("http listener: :%d", stats.HttpPort)
	if stats.HttpsEnabled {
		logger.Info().Bool("mtls", stats.MtlsEnabled).Msgf("https listener: :%d", stats.HttpsPort)
	} else {
		logger.Info().Msg("https listener: disabled (key or certificate missing)")
	}
	logger.Info().Msgf("max body size: %s", stats.MaxBodySize)
	if stats.OverrideBodyPath != "" {
		logger.Info().Bool("found", stats.OverrideBodyFound).Msgf("override response body: %s", stats.OverrideBodyPath)
	}
	logger.Info().Bool("enabled", stats.CorsEnabled).Msg("cors")
	if stats.MetricsPath != "" {
		logger.Info().Msgf("metrics: %s", stats.MetricsPath)
	}
	if stats.TracingEndpoint != "" {
		logger.Info().Msgf("tracing: %s", stats.TracingEndpoint)
	}
}
