package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("profiling", "samples", 12)
	logger.SetLevel(WARN)
	logger.Info("dropped")
	logger.Warnf("constraint %s is loose", "angular")

	entries := logs.All()
	test.That(t, len(entries), test.ShouldEqual, 2)
	test.That(t, entries[0].Message, test.ShouldEqual, "profiling")
	test.That(t, entries[0].ContextMap()["samples"], test.ShouldEqual, int64(12))
	test.That(t, entries[1].Message, test.ShouldEqual, "constraint angular is loose")
}

func TestContextDebugMode(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(ERROR)

	logger.CDebugf(context.Background(), "hidden %d", 1)
	logger.CDebugf(EnableDebugMode(context.Background(), ""), "shown %d", 2)
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "shown 2")
}

func TestWriterAppender(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("follower")
	logger.AddAppender(NewWriterAppender(&buf))
	sub := logger.Sublogger("holonomic")

	sub.Infow("finished", "elapsed", 1.5)
	line := strings.TrimSuffix(buf.String(), "\n")
	parts := strings.Split(line, "\t")
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "follower.holonomic")
	test.That(t, parts[3], test.ShouldContainSubstring, "logging_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "finished")
	test.That(t, parts[5], test.ShouldEqual, `{"elapsed":1.5}`)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.out)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}
