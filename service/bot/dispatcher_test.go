package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/brojonat/sbi/service/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// replyRecorder collects replies. It is safe for concurrent use.
type replyRecorder struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (r *replyRecorder) reply(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return r.err
}

func (r *replyRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

// commandCount reads bot_commands_total{command,outcome} from reg.
func commandCount(t *testing.T, reg *prometheus.Registry, command string, outcome Outcome) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "bot_commands_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["command"] == command && labels["outcome"] == string(outcome) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Command
		wantOK bool
	}{
		{
			name:   "bare command",
			text:   "/start",
			want:   Command{Name: "start", Args: []string{}},
			wantOK: true,
		},
		{
			name:   "command with args",
			text:   "/track  abc   def",
			want:   Command{Name: "track", Args: []string{"abc", "def"}},
			wantOK: true,
		},
		{
			name:   "bot suffix and case",
			text:   "/Track@SBIBot abc",
			want:   Command{Name: "track", Args: []string{"abc"}},
			wantOK: true,
		},
		{
			name:   "leading whitespace",
			text:   "  /memecoins",
			want:   Command{Name: "memecoins", Args: []string{}},
			wantOK: true,
		},
		{name: "plain text", text: "hello there"},
		{name: "empty", text: ""},
		{name: "slash only", text: "/"},
		{name: "suffix only", text: "/@SBIBot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDispatch_RoutesToHandler(t *testing.T) {
	d := NewDispatcher(nil, discardLogger())
	var got Command
	d.Register("echo", func(ctx context.Context, cmd Command, reply Reply) Outcome {
		got = cmd
		reply(ctx, "echo: "+cmd.Args[0])
		return OutcomeOK
	})

	rec := &replyRecorder{}
	handled := d.Dispatch(context.Background(), "/echo hi", rec.reply)

	assert.True(t, handled)
	assert.Equal(t, "echo", got.Name)
	assert.Equal(t, []string{"echo: hi"}, rec.all())
}

func TestDispatch_IgnoresUnknownAndPlainText(t *testing.T) {
	d := NewDispatcher(nil, discardLogger())
	d.Register("start", handleStart(discardLogger()))

	rec := &replyRecorder{}
	assert.False(t, d.Dispatch(context.Background(), "/unknown", rec.reply))
	assert.False(t, d.Dispatch(context.Background(), "just chatting", rec.reply))
	assert.Empty(t, rec.all())
}

func TestDispatch_RecoversPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	d := NewDispatcher(m, discardLogger())
	d.Register("boom", func(ctx context.Context, cmd Command, reply Reply) Outcome {
		panic("handler exploded")
	})

	rec := &replyRecorder{}
	require.NotPanics(t, func() {
		d.Dispatch(context.Background(), "/boom", rec.reply)
	})

	assert.Equal(t, []string{MessageFailure}, rec.all())
	assert.Equal(t, 1.0, commandCount(t, reg, "boom", OutcomePanic))
}

func TestDispatch_PanicAfterReplyDoesNotReplyAgain(t *testing.T) {
	d := NewDispatcher(nil, discardLogger())
	d.Register("late", func(ctx context.Context, cmd Command, reply Reply) Outcome {
		reply(ctx, "partial")
		panic("after reply")
	})

	rec := &replyRecorder{}
	d.Dispatch(context.Background(), "/late", rec.reply)
	assert.Equal(t, []string{"partial"}, rec.all())
}

func TestDispatch_RepliesAtMostOnce(t *testing.T) {
	d := NewDispatcher(nil, discardLogger())
	var secondErr error
	d.Register("twice", func(ctx context.Context, cmd Command, reply Reply) Outcome {
		reply(ctx, "first")
		secondErr = reply(ctx, "second")
		return OutcomeOK
	})

	rec := &replyRecorder{}
	d.Dispatch(context.Background(), "/twice", rec.reply)
	assert.Equal(t, []string{"first"}, rec.all())
	assert.Error(t, secondErr)
}

func TestDispatch_RecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	d := NewDispatcher(m, discardLogger())
	RegisterHandlers(d, &fakeBuilder{}, discardLogger())

	rec := &replyRecorder{err: errors.New("chat gone")}
	d.Dispatch(context.Background(), "/start", rec.reply)
	d.Dispatch(context.Background(), "/track", (&replyRecorder{}).reply)

	assert.Equal(t, 1.0, commandCount(t, reg, "start", OutcomeReplyError))
	assert.Equal(t, 1.0, commandCount(t, reg, "track", OutcomeUsage))
}
