package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestHandlerHandleRendersMessage(t *testing.T) {
	buf := &bytes.Buffer{}
	h := newHandler(buf)

	record := map[string]any{
		"level": "INFO",
		"msg":   "built container artifact",
		"flake": "github:surma/containix#hello",
	}
	if err := h.Handle(context.Background(), record); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "built container artifact") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "flake") {
		t.Errorf("output missing remaining attrs: %q", out)
	}
}

func TestHandlerHandleRejectsUnknownLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	h := newHandler(buf)

	err := h.Handle(context.Background(), map[string]any{"level": "TRACE", "msg": "x"})
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestHandlerHandleRequiresLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	h := newHandler(buf)

	err := h.Handle(context.Background(), map[string]any{"msg": "x"})
	if err == nil {
		t.Fatal("expected error when level is missing")
	}
}
