package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/leafsii/crypto-tracker/internal/metrics"
	"github.com/leafsii/crypto-tracker/internal/store"
	"go.uber.org/zap"
)

// EventTableUpdate names the SSE event carrying a view.Table.
const EventTableUpdate = "table_update"

type SSEHandler struct {
	cache     *store.Cache
	heartbeat time.Duration
	logger    *zap.SugaredLogger
	metrics   *metrics.Metrics
}

// NewSSEHandler builds the event-stream endpoint. CORS is left to the
// router middleware.
func NewSSEHandler(cache *store.Cache, logger *zap.SugaredLogger, m *metrics.Metrics) *SSEHandler {
	return &SSEHandler{
		cache:     cache,
		heartbeat: 30 * time.Second,
		logger:    logger,
		metrics:   m,
	}
}

// HandleSSE streams table updates as server-sent events until the client
// goes away. The latest cached table is sent first.
func (h *SSEHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	sub := h.cache.Subscribe(ctx, store.ChannelTable)
	defer sub.Close()

	h.metrics.IncrementConnections(ctx, "sse")
	defer h.metrics.DecrementConnections(ctx, "sse")
	h.logger.Debugw("SSE connection established", "remote", r.RemoteAddr)

	var seq uint64
	send := func(event string, data []byte) {
		seq++
		fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", event, strconv.FormatUint(seq, 10), data)
		flusher.Flush()
	}

	send("connected", []byte(`{}`))

	var latest json.RawMessage
	if err := h.cache.GetTable(ctx, &latest); err == nil {
		send(EventTableUpdate, latest)
	} else if !errors.Is(err, store.ErrCacheMiss) {
		h.logger.Warnw("Failed to read latest table", "error", err)
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debugw("SSE client disconnected", "remote", r.RemoteAddr)
			return
		case <-heartbeat.C:
			send("heartbeat", []byte(fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix())))
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			send(EventTableUpdate, []byte(msg.Payload))
		}
	}
}
