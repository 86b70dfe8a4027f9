package logger

import (
	"github.com/hrishi-sarma/codeforedtech/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// prometheusHook counts logged failures. Best-effort side effects that
// degrade without failing the request are logged at warning level and
// show up under severity "degraded".
type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok {
		if entry.Level == log.WarnLevel {
			return nil
		}
		errorType = "unknown"
	}

	severity := "failed"
	if entry.Level == log.WarnLevel {
		severity = "degraded"
	}
	metrics.ErrorsCounter.WithLabelValues(errorType, severity).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

func addPrometheusHook() {
	log.AddHook(&prometheusHook{})
	log.Debug("prometheus error counter hooked into logrus")
}
