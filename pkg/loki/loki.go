package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"github.com/go-playground/validator/v10"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {

	// TenantValue is the value associated with the tenant for multi-tenant systems.
	// It is optional. If not provided, the request will not include a tenant header.
	TenantValue string

	// TenantKey is the key used to specify the tenant in the request headers.
	// It is optional. If not provided, the request will not include a tenant header.
	TenantKey string

	// Url of the loki server, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	// BatchMaxSize is the maximum number of log lines that are sent in one request
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the maximum time to wait before sending a request
	BatchMaxWait time.Duration `validate:"gte=1"`

	// Labels that are added to all log lines. Level and error type are added
	// per line as stream labels.
	Labels map[string]string

	// Username and Password enable basic authentication when both are set.
	Username string
	Password string

	// BufferSize bounds the number of entries waiting to be batched. Entries
	// pushed while the buffer is full are dropped and counted.
	BufferSize int `validate:"gte=1"`
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 1000
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 4096
	}
}

type Pusher struct {
	config    *Config
	ctx       context.Context
	cancel    context.CancelFunc
	client    *http.Client
	quit      chan struct{}
	stopOnce  sync.Once
	entry     chan LogEntry
	waitGroup sync.WaitGroup
	batch     []LogEntry
	logger    Logger

	mu      sync.Mutex
	dropped int
}

type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Caller    string    `json:"caller,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	Time      time.Time `json:"-"`
}

type lokiPushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values []streamValue     `json:"values"`
}

type streamValue []string

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	err := validator.New().Struct(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config: &cfg,
		ctx:    ctx,
		cancel: cancel,
		client: &http.Client{Timeout: 10 * time.Second},
		quit:   make(chan struct{}),
		entry:  make(chan LogEntry, cfg.BufferSize),
		batch:  make([]LogEntry, 0, cfg.BatchMaxSize),
		logger: logger,
	}

	p.waitGroup.Add(1)
	go p.run()
	return p, nil
}

// Push queues an entry without blocking the caller.
func (p *Pusher) Push(e LogEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case p.entry <- e:
		return nil
	default:
		p.mu.Lock()
		p.dropped++
		p.mu.Unlock()
		return nil
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (p *Pusher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Stop flushes pending entries and stops the pusher. Safe to call twice.
func (p *Pusher) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.waitGroup.Wait()
		p.cancel()
	})
}

func (p *Pusher) run() {
	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	trySendBatch := func() {
		err := p.send()
		if err != nil {
			p.logger.Error("failed to send logs", "error", err)
		}
		p.batch = p.batch[:0]
	}

	defer func() {
	drain:
		for {
			select {
			case entry := <-p.entry:
				p.batch = append(p.batch, entry)
			default:
				break drain
			}
		}
		if len(p.batch) > 0 {
			trySendBatch()
		}

		p.waitGroup.Done()
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.quit:
			return
		case entry := <-p.entry:
			p.batch = append(p.batch, entry)
			if len(p.batch) >= p.config.BatchMaxSize {
				trySendBatch()
			}
		case <-ticker.C:
			if len(p.batch) > 0 {
				trySendBatch()
			}
		}
	}
}

func newValue(entry LogEntry) streamValue {
	entryJson, err := json.Marshal(entry)
	if err != nil {
		return nil
	}
	timestamp := strconv.FormatInt(entry.Time.UnixNano(), 10)
	return []string{timestamp, string(entryJson)}
}

// buildStreams groups the batch into one stream per distinct label set.
func (p *Pusher) buildStreams(entries []LogEntry) []stream {
	byKey := map[string]*stream{}
	var keys []string

	for _, entry := range entries {
		labels := make(map[string]string, len(p.config.Labels)+2)
		for k, v := range p.config.Labels {
			labels[k] = v
		}
		labels["level"] = entry.Level
		if entry.ErrorType != "" {
			labels["error_type"] = entry.ErrorType
		}

		key := labelsKey(labels)
		s, ok := byKey[key]
		if !ok {
			s = &stream{Stream: labels}
			byKey[key] = s
			keys = append(keys, key)
		}
		if value := newValue(entry); value != nil {
			s.Values = append(s.Values, value)
		}
	}

	streams := make([]stream, 0, len(keys))
	for _, key := range keys {
		streams = append(streams, *byKey[key])
	}
	return streams
}

func labelsKey(labels map[string]string) string {
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (p *Pusher) send() error {
	buf := bytes.NewBuffer([]byte{})
	gz := gzip.NewWriter(buf)

	if err := json.NewEncoder(gz).Encode(lokiPushRequest{Streams: p.buildStreams(p.batch)}); err != nil {
		return err
	}

	if err := gz.Close(); err != nil {
		return err
	}

	// the pusher context may already be cancelled while flushing on shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Url, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	if len(p.config.TenantKey) > 0 {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}

	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("received unexpected response code from Loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
