package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Level is a logrus level name. Defaults to "info".
	Level string
	// File, when set, routes output to a rotating log file instead of Out.
	File string
	// Out defaults to stderr.
	Out    io.Writer
	System string
}

// LineFormatter writes one line per entry:
//
//	2026-01-20 10:04:05 INFO [parrillas] message key=value
type LineFormatter struct {
	SystemName string
}

func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(entry.Level.String()))
	if f.SystemName != "" {
		fmt.Fprintf(b, " [%s]", f.SystemName)
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := entry.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		s := fmt.Sprint(v)
		if strings.ContainsAny(s, " \t\"") {
			s = fmt.Sprintf("%q", s)
		}
		fmt.Fprintf(b, " %s=%s", k, s)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func New(opts Options) (*logrus.Logger, error) {
	l := logrus.New()
	level := logrus.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		lv, err := logrus.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		level = lv
	}
	l.SetLevel(level)

	system := opts.System
	if system == "" {
		system = "parrillas"
	}
	l.SetFormatter(&LineFormatter{SystemName: system})

	switch {
	case strings.TrimSpace(opts.File) != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, err
		}
		l.SetOutput(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	case opts.Out != nil:
		l.SetOutput(opts.Out)
	default:
		l.SetOutput(os.Stderr)
	}
	return l, nil
}

// Discard returns a logger that drops everything. Useful as a default.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Component returns an entry tagged with the component name.
func Component(l logrus.FieldLogger, name string) *logrus.Entry {
	if l == nil {
		l = Discard()
	}
	return l.WithField("component", name)
}
