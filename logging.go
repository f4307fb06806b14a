package main

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging configures the global logrus logger from cfg. With no log file, logs go
// to stdout only; otherwise to a rotated file, optionally mirrored to stdout.
func setupLogging(cfg *Config) {
	if cfg.LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.SetLevel(logLevel(cfg.LogLevel))

	if cfg.LogFile == "" {
		log.SetOutput(os.Stdout)
		return
	}

	fileName := cfg.LogFile
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	rotating := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		LocalTime:  false,
		Compress:   true,
	}

	if cfg.LogToStdout {
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	} else {
		log.SetOutput(rotating)
	}
}

// logLevel maps a config string to a logrus level, defaulting to info.
func logLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
