// Command containix-logtail follows a containix JSON log file (the kind
// written by "containix run --log-file", rotated by lumberjack) and prints
// it one readable, colorized record at a time instead of raw JSON.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/nxadm/tail"
	"github.com/walles/moor/v2/pkg/moor"
)

// CLI is parsed with kong, the same framework the main containix binary
// uses for its own flags.
type CLI struct {
	Pager bool   `help:"page output instead of streaming it to stdout"`
	Path  string `arg:"" help:"path to the containix JSON log file to follow"`
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Description("Follow and pretty-print a containix JSON log file."))

	ctx := context.Background()
	var writer writeFlusher
	var reader io.Reader

	pipeReader, pipeWriter := io.Pipe()
	buf := bufio.NewReadWriter(bufio.NewReader(pipeReader), bufio.NewWriter(pipeWriter))
	reader, writer = buf.Reader, buf.Writer

	h := newHandler(writer)

	t, err := tail.TailFile(cli.Path, tail.Config{
		ReOpen:        true,
		Follow:        true,
		CompleteLines: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer t.Cleanup()

	go func() {
		for line := range t.Lines {
			decoder := json.NewDecoder(strings.NewReader(line.Text))
			var entry map[string]any
			if err := decoder.Decode(&entry); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
				continue
			}
			if err := h.Handle(ctx, entry); err != nil {
				fmt.Fprintln(os.Stderr, err.Error())
			}
			writer.Flush()
		}
	}()

	if cli.Pager {
		if err := moor.PageFromStream(reader, moor.Options{
			NoAutoFormat:  false,
			WrapLongLines: false,
			Title:         cli.Path,
		}); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		return
	}
	if _, err := io.Copy(os.Stdout, reader); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err.Error())
	}
}

type writeFlusher interface {
	io.Writer
	Flush() error
}

const (
	timeFormat = "[15:04:05.000]"
	reset      = "\033[0m"

	lightGray    = 37
	darkGray     = 90
	lightRed     = 91
	lightBlue    = 94
	lightYellow  = 93
	lightMagenta = 95
	cyan         = 36
	white        = 97
)

func colorize(code int, v string) string {
	lines := strings.Split(v, "\n")
	for i, line := range lines {
		lines[i] = fmt.Sprintf("\033[%sm%s%s", strconv.Itoa(code), line, reset)
	}
	return strings.Join(lines, "\n")
}

// handler renders one slog JSON record as human-readable, colorized text:
// timestamp, level and message on one line, then any remaining attrs as
// indented JSON, which continues over further lines.
type handler struct {
	m      *sync.Mutex
	buf    *bytes.Buffer
	writer io.Writer
}

func newHandler(writer io.Writer) *handler {
	return &handler{m: &sync.Mutex{}, buf: &bytes.Buffer{}, writer: writer}
}

func (h *handler) Handle(_ context.Context, r map[string]any) error {
	levelName, ok := r[slog.LevelKey].(string)
	if !ok {
		return fmt.Errorf("level is not a string")
	}
	var level slog.Level
	switch strings.ToUpper(levelName) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown level name %q", levelName)
	}

	label := levelName + ":"
	switch {
	case level <= slog.LevelDebug:
		label = colorize(lightGray, label)
	case level <= slog.LevelInfo:
		label = colorize(cyan, label)
	case level < slog.LevelWarn:
		label = colorize(lightBlue, label)
	case level < slog.LevelError:
		label = colorize(lightYellow, label)
	default:
		label = colorize(lightRed, label)
	}

	var timestamp string
	if raw, ok := r[slog.TimeKey].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			timestamp = colorize(lightGray, ts.Local().Format(timeFormat))
		}
	}

	msg, _ := r[slog.MessageKey].(string)
	if msg != "" {
		msg = colorize(white, msg)
	}

	delete(r, slog.LevelKey)
	delete(r, slog.TimeKey)
	delete(r, slog.MessageKey)

	var attrs []byte
	if len(r) > 0 {
		var err error
		attrs, err = json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal attrs: %w", err)
		}
	}

	var out strings.Builder
	if timestamp != "" {
		out.WriteString(timestamp)
		out.WriteString(" ")
	}
	out.WriteString(label)
	out.WriteString(" ")
	if msg != "" {
		out.WriteString(msg)
		out.WriteString(" ")
	}
	if len(attrs) > 0 {
		out.WriteString(colorize(darkGray, string(attrs)))
	}

	_, err := io.WriteString(h.writer, out.String()+"\n")
	return err
}
