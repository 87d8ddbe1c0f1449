package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Conf configures a single log output
type Conf struct {
	Dir    string `yaml:"dir"`
	StdErr bool   `yaml:"stderr"`
}

var accessWriter io.Writer = os.Stderr

// Init sets up the internal logger and the writer for the access log
func Init(internal Conf, level string, access Conf) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.WithError(err).Error("unknown log level, using info")
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetOutput(output(internal, "certledger.log"))
	accessWriter = output(access, "access.log")
}

// AccessWriter returns the writer the access log should be written to
func AccessWriter() io.Writer {
	return accessWriter
}

func output(conf Conf, fileName string) io.Writer {
	if conf.Dir == "" {
		return os.Stderr
	}
	file, err := os.OpenFile(
		filepath.Join(conf.Dir, fileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600,
	)
	if err != nil {
		log.WithError(err).Error("could not open log file, logging to stderr")
		return os.Stderr
	}
	if conf.StdErr {
		return io.MultiWriter(os.Stderr, file)
	}
	return file
}
