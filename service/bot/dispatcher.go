package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/brojonat/sbi/service/metrics"
)

// Outcome classifies how a command was answered. It is used as a metric label.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeUsage          Outcome = "usage"
	OutcomeInvalidAddress Outcome = "invalid_address"
	OutcomeUpstreamError  Outcome = "upstream_error"
	OutcomeReplyError     Outcome = "reply_error"
	OutcomePanic          Outcome = "panic"
)

// Reply sends text back to whoever issued the command.
type Reply func(ctx context.Context, text string) error

// Command is a parsed chat command such as "/track <address>".
type Command struct {
	Name string
	Args []string
}

// HandlerFunc answers a single command. It must call reply exactly once.
type HandlerFunc func(ctx context.Context, cmd Command, reply Reply) Outcome

// ParseCommand parses text of the form "/name[@bot] arg1 arg2 ...".
// It returns false if text is not a command.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}

	return Command{
		Name: strings.ToLower(name),
		Args: fields[1:],
	}, true
}

// Dispatcher routes commands to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
// If metrics is nil, no metrics will be recorded.
func NewDispatcher(m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		metrics:  m,
		logger:   logger,
	}
}

// Register binds a handler to a command name, replacing any previous binding.
func (d *Dispatcher) Register(name string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[strings.ToLower(name)] = h
}

// Dispatch parses text and runs the matching handler. It reports whether a
// handler ran. Non-command text and unknown commands are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, reply Reply) bool {
	cmd, ok := ParseCommand(text)
	if !ok {
		d.logger.DebugContext(ctx, "ignoring non-command message")
		return false
	}

	d.mu.RLock()
	h, ok := d.handlers[cmd.Name]
	d.mu.RUnlock()
	if !ok {
		d.logger.DebugContext(ctx, "ignoring unknown command", "command", cmd.Name)
		return false
	}

	outcome := d.run(ctx, h, cmd, reply)

	d.logger.InfoContext(ctx, "handled command",
		"command", cmd.Name,
		"outcome", string(outcome),
	)
	if d.metrics != nil {
		d.metrics.RecordCommand(cmd.Name, string(outcome))
	}
	return true
}

func (d *Dispatcher) run(ctx context.Context, h HandlerFunc, cmd Command, reply Reply) (outcome Outcome) {
	replied := false
	once := func(ctx context.Context, text string) error {
		if replied {
			return fmt.Errorf("command %q already replied", cmd.Name)
		}
		replied = true
		return reply(ctx, text)
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		d.logger.ErrorContext(ctx, "command handler panicked",
			"command", cmd.Name,
			"error", fmt.Errorf("panic: %v", r),
		)
		outcome = OutcomePanic
		if !replied {
			if err := once(ctx, MessageFailure); err != nil {
				d.logger.ErrorContext(ctx, "failed to send reply", "command", cmd.Name, "error", err)
			}
		}
	}()

	return h(ctx, cmd, once)
}
