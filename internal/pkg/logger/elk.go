// internal/pkg/logger/elk.go
package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// ELKConfig configures shipping of log records to Elasticsearch.
type ELKConfig struct {
	ElasticsearchURL string        `json:"elasticsearch_url"`
	IndexPattern     string        `json:"index_pattern"`
	BatchSize        int           `json:"batch_size"`
	FlushInterval    time.Duration `json:"flush_interval"`
	Username         string        `json:"username"`
	Password         string        `json:"password"`
}

// esDocument is the shape indexed per record. Correlation fields are
// promoted to top-level keys so Kibana filters work without mapping
// custom attributes.
type esDocument struct {
	Timestamp time.Time      `json:"@timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
	ClientIP  string         `json:"client_ip,omitempty"`
	Method    string         `json:"method,omitempty"`
	Path      string         `json:"path,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// ELKHandler buffers records and bulk-indexes them into a dated index.
// Shipping is best effort: failures are reported on stderr, never back
// to the caller.
type ELKHandler struct {
	cfg    ELKConfig
	client *http.Client
	level  slog.Level

	mu  sync.Mutex
	buf []esDocument
}

// NewELKHandler starts a background flusher and returns the handler.
func NewELKHandler(cfg ELKConfig) *ELKHandler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	h := &ELKHandler{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		level:  slog.LevelInfo,
		buf:    make([]esDocument, 0, cfg.BatchSize),
	}

	go func() {
		ticker := time.NewTicker(cfg.FlushInterval)
		defer ticker.Stop()
		for range ticker.C {
			h.Flush()
		}
	}()

	return h
}

func (h *ELKHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ELKHandler) Handle(ctx context.Context, rec slog.Record) error {
	doc := esDocument{
		Timestamp: rec.Time,
		Level:     rec.Level.String(),
		Message:   rec.Message,
		RequestID: contextString(ctx, ContextKeyRequestID),
		SessionID: contextString(ctx, ContextKeySessionID),
		TraceID:   contextString(ctx, ContextKeyTraceID),
		ClientIP:  contextString(ctx, ContextKeyClientIP),
		Method:    contextString(ctx, ContextKeyMethod),
		Path:      contextString(ctx, ContextKeyPath),
	}
	rec.Attrs(func(a slog.Attr) bool {
		if doc.Fields == nil {
			doc.Fields = make(map[string]any)
		}
		doc.Fields[a.Key] = a.Value.Any()
		return true
	})

	h.mu.Lock()
	h.buf = append(h.buf, doc)
	full := len(h.buf) >= h.cfg.BatchSize
	h.mu.Unlock()

	if full {
		go h.Flush()
	}
	return nil
}

// Flush drains the buffer into a single bulk request.
func (h *ELKHandler) Flush() {
	h.mu.Lock()
	if len(h.buf) == 0 {
		h.mu.Unlock()
		return
	}
	docs := h.buf
	h.buf = make([]esDocument, 0, h.cfg.BatchSize)
	h.mu.Unlock()

	h.bulkIndex(docs)
}

func (h *ELKHandler) bulkIndex(docs []esDocument) {
	index := fmt.Sprintf("%s-%s", h.cfg.IndexPattern, time.Now().Format("2006.01.02"))

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		_ = enc.Encode(map[string]any{"index": map[string]string{"_index": index}})
		_ = enc.Encode(doc)
	}

	req, err := http.NewRequest(http.MethodPost, h.cfg.ElasticsearchURL+"/_bulk", &body)
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if h.cfg.Username != "" {
		req.SetBasicAuth(h.cfg.Username, h.cfg.Password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "elk: bulk index failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "elk: bulk index returned %d\n", resp.StatusCode)
	}
}

func (h *ELKHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *ELKHandler) WithGroup(_ string) slog.Handler      { return h }

func contextString(ctx context.Context, key ContextKey) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
