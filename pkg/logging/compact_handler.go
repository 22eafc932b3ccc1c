package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// maxListItems caps how many names of a []string attribute are printed
const maxListItems = 5

var levelLabels = []struct {
	min   slog.Level
	label string
	color *color.Color
}{
	{slog.LevelError, "ERROR", color.New(color.FgRed, color.Bold)},
	{slog.LevelWarn, "WARN", color.New(color.FgYellow)},
	{slog.LevelInfo, "INFO", color.New(color.Reset)},
	{slog.LevelDebug, "DEBUG", color.New(color.Faint)},
	{slog.Level(math.MinInt), "TRACE", color.New(color.Faint)},
}

// CompactHandler writes one line per record for console output:
//
//	[LEVEL] HH:MM:SS component(module): message | key=value key=value
//
// The module attribute is lifted into the header next to the component.
type CompactHandler struct {
	level     slog.Leveler
	mu        *sync.Mutex // shared by handlers derived via WithAttrs/WithGroup
	out       io.Writer
	component string
	module    string
	attrs     []byte // preformatted attributes from WithAttrs
	group     string
}

// NewCompactHandler creates a new compact console handler
func NewCompactHandler(w io.Writer, opts *slog.HandlerOptions) *CompactHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &CompactHandler{level: level, mu: new(sync.Mutex), out: w}
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = appendLevel(buf, r.Level)
	if !r.Time.IsZero() {
		buf = r.Time.AppendFormat(buf, "15:04:05")
		buf = append(buf, ' ')
	}

	module := h.module
	var attrs []byte
	r.Attrs(func(a slog.Attr) bool {
		if module == "" && h.group == "" && a.Key == "module" && a.Value.Kind() == slog.KindString {
			module = a.Value.String()
			return true
		}
		attrs = appendAttr(attrs, h.group, a)
		return true
	})

	switch {
	case h.component != "" && module != "":
		buf = append(buf, h.component...)
		buf = append(buf, '(')
		buf = append(buf, module...)
		buf = append(buf, "): "...)
	case h.component != "" || module != "":
		buf = append(buf, h.component...)
		buf = append(buf, module...)
		buf = append(buf, ": "...)
	}
	buf = append(buf, r.Message...)

	if len(h.attrs) > 0 || len(attrs) > 0 {
		buf = append(buf, " |"...)
		buf = append(buf, h.attrs...)
		buf = append(buf, attrs...)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.attrs = h.attrs[:len(h.attrs):len(h.attrs)]
	for _, a := range attrs {
		if h.group == "" && a.Value.Kind() == slog.KindString {
			switch a.Key {
			case "component":
				derived.component = a.Value.String()
				continue
			case "module":
				derived.module = a.Value.String()
				continue
			}
		}
		derived.attrs = appendAttr(derived.attrs, h.group, a)
	}
	return &derived
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.group = qualify(h.group, name)
	return &derived
}

func appendLevel(buf []byte, level slog.Level) []byte {
	for _, l := range levelLabels {
		if level < l.min {
			continue
		}
		buf = append(buf, l.color.Sprint("["+l.label+"]")...)
		buf = append(buf, strings.Repeat(" ", 6-len(l.label))...)
		return buf
	}
	return buf
}

func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		prefix := group
		if a.Key != "" {
			prefix = qualify(group, a.Key)
		}
		for _, member := range a.Value.Group() {
			buf = appendAttr(buf, prefix, member)
		}
		return buf
	}

	buf = append(buf, ' ')
	switch a.Key {
	case "requestID":
		if s := a.Value.String(); len(s) > 8 {
			return append(append(buf, "req="...), s[:8]...)
		}
	case "durationMs":
		buf = append(buf, "duration="...)
		buf = append(buf, a.Value.String()...)
		return append(buf, "ms"...)
	case "error":
		return strconv.AppendQuote(append(buf, "error="...), fmt.Sprint(a.Value.Any()))
	}

	buf = append(buf, qualify(group, a.Key)...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		return appendString(buf, v.String())
	case slog.KindInt64:
		return strconv.AppendInt(buf, v.Int64(), 10)
	case slog.KindUint64:
		return strconv.AppendUint(buf, v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.AppendFloat(buf, v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		return strconv.AppendBool(buf, v.Bool())
	case slog.KindDuration:
		return append(buf, v.Duration().String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	}

	switch x := v.Any().(type) {
	case []string:
		return appendList(buf, x)
	case error:
		return strconv.AppendQuote(buf, x.Error())
	default:
		return appendString(buf, fmt.Sprint(x))
	}
}

// appendList prints names as [a,b,c,+N] where N counts the names left out
func appendList(buf []byte, names []string) []byte {
	buf = append(buf, '[')
	for i, name := range names {
		if i == maxListItems {
			buf = append(buf, '+')
			buf = strconv.AppendInt(buf, int64(len(names)-i), 10)
			break
		}
		buf = append(buf, name...)
		if i < len(names)-1 {
			buf = append(buf, ',')
		}
	}
	return append(buf, ']')
}

func appendString(buf []byte, s string) []byte {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.AppendQuote(buf, s)
	}
	return append(buf, s...)
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}
