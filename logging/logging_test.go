package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observerCore() (zapcore.Core, *observer.ObservedLogs) {
	return observer.New(zapcore.DebugLevel)
}

func TestRecorderRecordsEveryLevel(t *testing.T) {
	require := require.New(t)
	r := NewRecorder()

	r.Verbo("v")
	r.Debug("d")
	r.Info("i")
	r.Warn("w")
	r.Error("e")
	r.Fatal("f")

	entries := r.Entries()
	require.Len(entries, 6)
	require.Equal([]Entry{
		{Level: "verbo", Msg: "v"},
		{Level: "debug", Msg: "d"},
		{Level: "info", Msg: "i"},
		{Level: "warn", Msg: "w"},
		{Level: "error", Msg: "e"},
		{Level: "fatal", Msg: "f"},
	}, entries)
}

func TestRecorderWithReturnsSameRecorder(t *testing.T) {
	require := require.New(t)
	r := NewRecorder()
	child := r.With(zap.String("component", "mesh"))
	child.Info("hello")
	require.Len(r.Entries(), 1)
}

func TestNoLogDiscardsSilently(t *testing.T) {
	require := require.New(t)
	require.NotPanics(func() {
		NoLog.Info("anything")
		NoLog.With(zap.String("k", "v")).Error("anything")
	})
}

func TestNewZapVerboRespectsVerboseFlag(t *testing.T) {
	require := require.New(t)
	core, logs := observerCore()
	quiet := NewZap(zap.New(core), false)
	quiet.Verbo("should not appear")
	require.Equal(0, logs.Len())

	loud := NewZap(zap.New(core), true)
	loud.Verbo("should appear as debug")
	require.Equal(1, logs.Len())
	require.Equal(zap.DebugLevel, logs.All()[0].Level)
}
