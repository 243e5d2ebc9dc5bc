package lineserver

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/bloomgate-go/internal/core/domain"
	"github.com/yndnr/bloomgate-go/internal/registry"
	"github.com/yndnr/bloomgate-go/internal/telemetry/metric"
	"github.com/yndnr/bloomgate-go/pkg/cmap"
)

// Protocol response tokens.
const (
	respOK               = "OK"
	respTrue             = "TRUE"
	respFalse            = "FALSE"
	respNotFound         = "NOT_FOUND"
	respAlreadyExists    = "ALREADY_EXISTS"
	respInvalidParameter = "INVALID_PARAMETER"
	respRateLimited      = "ERR rate limit exceeded"
)

// Defaults applied when create omits the optional arguments.
const (
	DefaultCapacity = 10000
	DefaultFPP      = 0.01
)

// Handler executes parsed protocol commands against the registry.
type Handler struct {
	registry *registry.Registry
	logger   *slog.Logger
	metrics  *metric.Metrics

	defaultCapacity uint64
	defaultFPP      float64

	// Per-client-IP token buckets. Zero rateLimit disables limiting.
	rateLimit rate.Limit
	rateBurst int
	limiters  *cmap.Map[*rate.Limiter]
}

// NewHandler creates a command handler. rateLimit is commands per second
// per client IP; zero disables rate limiting.
func NewHandler(reg *registry.Registry, rateLimit int, logger *slog.Logger, metrics *metric.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		registry:        reg,
		logger:          logger,
		metrics:         metrics,
		defaultCapacity: DefaultCapacity,
		defaultFPP:      DefaultFPP,
	}
	if rateLimit > 0 {
		h.rateLimit = rate.Limit(rateLimit)
		h.rateBurst = rateLimit
		h.limiters = cmap.New[*rate.Limiter]()
	}
	return h
}

// SetDefaults overrides the capacity and fpp applied when create omits
// the optional arguments. Zero values keep the built-in defaults.
func (h *Handler) SetDefaults(capacity uint64, fpp float64) {
	if capacity > 0 {
		h.defaultCapacity = capacity
	}
	if fpp > 0 && fpp < 1 {
		h.defaultFPP = fpp
	}
}

// allow checks the per-IP rate limit for one command.
func (h *Handler) allow(ip string) bool {
	if h.limiters == nil {
		return true
	}
	lim, ok := h.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(h.rateLimit, h.rateBurst)
		if !h.limiters.SetIfAbsent(ip, lim) {
			lim, _ = h.limiters.Get(ip)
		}
	}
	return lim.Allow()
}

// Handle executes one command line and returns the response line,
// without the trailing newline.
func (h *Handler) Handle(line, clientIP string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return h.malformed("", "empty command")
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	if !h.allow(clientIP) {
		if h.metrics != nil {
			h.metrics.RateLimited.Inc()
		}
		return respRateLimited
	}

	start := time.Now()
	var resp string
	switch cmd {
	case "create":
		resp = h.handleCreate(args)
	case "set":
		resp = h.handleSet(args)
	case "check":
		resp = h.handleCheck(args)
	case "clear":
		resp = h.handleClear(args)
	case "info":
		resp = h.handleInfo(args)
	default:
		// Fixed label: arbitrary client tokens must not mint metric series.
		return h.malformed("unknown", "unknown command "+strconv.Quote(cmd))
	}

	if h.metrics != nil {
		h.metrics.CommandDuration.WithLabelValues(cmd).Observe(time.Since(start).Seconds())
	}
	return resp
}

func (h *Handler) malformed(cmd, reason string) string {
	if h.metrics != nil {
		if cmd == "" {
			cmd = "unknown"
		}
		h.metrics.CommandsTotal.WithLabelValues(cmd, "malformed").Inc()
	}
	h.logger.Debug("rejected command",
		"code", domain.ErrMalformedCommand.Code,
		"command", cmd,
		"reason", reason)
	return "MALFORMED_COMMAND " + reason
}

func (h *Handler) count(cmd, status string) {
	if h.metrics != nil {
		h.metrics.CommandsTotal.WithLabelValues(cmd, status).Inc()
	}
}

func (h *Handler) handleCreate(args []string) string {
	if len(args) < 1 || len(args) > 3 {
		return h.malformed("create", "usage: create <name> [capacity] [fpp]")
	}

	name := args[0]
	capacity := h.defaultCapacity
	fpp := h.defaultFPP

	if len(args) >= 2 {
		v, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			h.count("create", "invalid_parameter")
			return respInvalidParameter
		}
		capacity = v
	}
	if len(args) == 3 {
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			h.count("create", "invalid_parameter")
			return respInvalidParameter
		}
		fpp = v
	}

	_, err := h.registry.Create(name, capacity, fpp)
	switch {
	case errors.Is(err, domain.ErrFilterExists):
		h.count("create", "already_exists")
		return respAlreadyExists
	case errors.Is(err, domain.ErrInvalidParameter):
		h.count("create", "invalid_parameter")
		return respInvalidParameter
	case err != nil:
		h.count("create", "error")
		h.logger.Error("create failed", "filter", name, "error", err)
		return respInvalidParameter
	}

	if h.metrics != nil {
		h.metrics.FiltersActive.Set(float64(h.registry.Len()))
	}
	h.logger.Info("filter created", "filter", name, "capacity", capacity, "fpp", fpp)
	h.count("create", "ok")
	return respOK
}

func (h *Handler) handleSet(args []string) string {
	if len(args) != 2 {
		return h.malformed("set", "usage: set <name> <key>")
	}

	f, err := h.registry.Get(args[0])
	if err != nil {
		h.count("set", "not_found")
		return respNotFound
	}

	f.Set([]byte(args[1]))
	if h.metrics != nil {
		h.metrics.KeysSetTotal.Inc()
	}
	h.count("set", "ok")
	return respOK
}

func (h *Handler) handleCheck(args []string) string {
	if len(args) != 2 {
		return h.malformed("check", "usage: check <name> <key>")
	}

	f, err := h.registry.Get(args[0])
	if err != nil {
		h.count("check", "not_found")
		return respNotFound
	}

	h.count("check", "ok")
	if f.Check([]byte(args[1])) {
		if h.metrics != nil {
			h.metrics.ChecksTotal.WithLabelValues("true").Inc()
		}
		return respTrue
	}
	if h.metrics != nil {
		h.metrics.ChecksTotal.WithLabelValues("false").Inc()
	}
	return respFalse
}

func (h *Handler) handleClear(args []string) string {
	if len(args) != 1 {
		return h.malformed("clear", "usage: clear <name>")
	}

	f, err := h.registry.Get(args[0])
	if err != nil {
		h.count("clear", "not_found")
		return respNotFound
	}

	f.Clear()
	h.logger.Info("filter cleared", "filter", args[0])
	h.count("clear", "ok")
	return respOK
}

func (h *Handler) handleInfo(args []string) string {
	if len(args) != 1 {
		return h.malformed("info", "usage: info <name>")
	}

	f, err := h.registry.Get(args[0])
	if err != nil {
		h.count("info", "not_found")
		return respNotFound
	}

	h.count("info", "ok")
	return formatInfo(f.Info())
}

func formatInfo(info domain.Info) string {
	return fmt.Sprintf("capacity=%d fpp=%g bits=%d hashes=%d count=%d hits=%d misses=%d created=%s",
		info.Capacity, info.FPP, info.Bits, info.Hashes, info.Count,
		info.Hits, info.Misses, info.CreatedAt.Format(time.RFC3339))
}
