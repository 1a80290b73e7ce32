package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logDir      = "log"
	logFilename = "lspd.log"
)

var Logger zerolog.Logger
var logFilePath string
var Writer io.Writer

// Init configures the global logger. logLevel is a numeric level where
// higher means more verbose (6=trace .. 0=panic), matching the historic
// LOG_LEVEL convention.
func Init(logLevel string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
	}
	Writer = consoleWriter

	Logger = zerolog.New(consoleWriter).
		With().
		Timestamp().
		Logger()

	level, err := strconv.Atoi(logLevel)
	if err != nil {
		level = 4
	}

	var zLevel zerolog.Level
	switch level {
	case 6:
		zLevel = zerolog.TraceLevel
	case 5:
		zLevel = zerolog.DebugLevel
	case 4:
		zLevel = zerolog.InfoLevel
	case 3:
		zLevel = zerolog.WarnLevel
	case 2:
		zLevel = zerolog.ErrorLevel
	case 1:
		zLevel = zerolog.FatalLevel
	case 0:
		zLevel = zerolog.PanicLevel
	default:
		zLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(zLevel)
	Logger = Logger.Level(zLevel)

	if zLevel <= zerolog.DebugLevel {
		Logger = Logger.With().Caller().Logger()
	}
}

// AddFileLogger mirrors log output to a rotating file under workdir.
func AddFileLogger(workdir string) error {
	logFilePath = filepath.Join(workdir, logDir, logFilename)
	fileLogger := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxAge:     3,
		MaxBackups: 3,
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
	}
	multi := zerolog.MultiLevelWriter(consoleWriter, fileLogger)
	Writer = multi

	Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()

	return nil
}

func GetLogFilePath() string {
	return logFilePath
}
