package logger

import (
	"context"
	"fmt"
	"github.com/hrishi-sarma/codeforedtech/pkg/loki"
	log "github.com/sirupsen/logrus"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var lokiPusher *loki.Pusher

type logrusAdapter struct {
}

func (l *logrusAdapter) Error(msg string, args ...any) {
	log.WithFields(log.Fields{"args": args, "source": "loki"}).Error(msg)
}

type lokiHook struct {
	pusher   *loki.Pusher
	minLevel log.Level
}

func (h *lokiHook) Fire(entry *log.Entry) error {
	if entry.Data["source"] == "loki" {
		return nil
	}

	caller := ""
	if entry.Caller != nil {
		caller = filepath.Base(entry.Caller.Function) + ":" + strconv.Itoa(entry.Caller.Line)
	}

	errorType, _ := entry.Data[ErrorTypeField].(string)

	return h.pusher.Push(loki.LogEntry{
		Level:     entry.Level.String(),
		Message:   withFields(entry.Message, entry.Data),
		Caller:    caller,
		ErrorType: errorType,
		Time:      entry.Time,
	})
}

// withFields appends structured fields such as job_id or route to the
// message, since only level and error type become stream labels.
func withFields(message string, data log.Fields) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		if key != ErrorTypeField {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return message
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(message)
	for _, key := range keys {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(fmt.Sprint(data[key]))
	}
	return b.String()
}

func (h *lokiHook) Levels() []log.Level {
	var levels []log.Level
	for _, level := range log.AllLevels {
		if level <= h.minLevel {
			levels = append(levels, level)
		}
	}
	return levels
}

func addLokiHook(ctx context.Context, cfg loki.Config, minLevel log.Level) error {
	pusher, err := loki.New(ctx, cfg, &logrusAdapter{})
	if err != nil {
		return err
	}
	lokiPusher = pusher
	log.AddHook(&lokiHook{pusher: pusher, minLevel: minLevel})
	log.Info("Loki logging enabled")
	return nil
}

func stopLoki() {
	if lokiPusher != nil {
		lokiPusher.Stop()
		lokiPusher = nil
	}
}
