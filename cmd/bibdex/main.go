package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bibdex/bibdex"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dir     string
		logFile string
	)
	cmd := &cobra.Command{
		Use:          "bibdex",
		Short:        "disk-backed bibliographic database",
		Long:         "bibdex indexes bibliographic XML dumps and answers prefix, fuzzy and top-K queries.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logFile)
			defer func() {
				_ = logger.Sync()
			}()
			db := bibdex.New(
				bibdex.WithBaseDir(dir),
				bibdex.WithLogger(logger),
			)
			return runREPL(db, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "database", "base directory databases live under")
	cmd.Flags().StringVar(&logFile, "log-file", "bibdex.log", "rotating log file")
	return cmd
}

func newLogger(path string) *zap.Logger {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    64, // megabytes
		MaxBackups: 3,
	})
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		zap.InfoLevel,
	)
	return zap.New(core)
}
