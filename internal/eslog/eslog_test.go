package eslog

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNoopDiscardsOutput(t *testing.T) {
	log := Noop()
	log.Info("should not appear anywhere observable")

	l, ok := log.(*logrus.Logger)
	if !ok || l.Out != io.Discard {
		t.Fatalf("expected a logger writing to io.Discard, got %T", log)
	}
}

func TestNewWritesToGivenOutputAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, logrus.WarnLevel)

	log.Debug("hidden below warn level")
	if buf.Len() != 0 {
		t.Fatalf("expected debug message suppressed at warn level, got %q", buf.String())
	}

	log.Warn("visible warning")
	if !strings.Contains(buf.String(), "visible warning") {
		t.Fatalf("expected warning to be written, got %q", buf.String())
	}
}
