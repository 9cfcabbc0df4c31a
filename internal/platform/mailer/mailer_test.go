package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSMTPSenderDefaultsTLSMode(t *testing.T) {
	s := NewSMTPSender("smtp.example", 587, "no-reply@example", "u", "p", "", zap.NewNop())
	assert.Equal(t, "auto", s.TLSMode)
}

func TestLogSenderRecordsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var s Sender = NewLogSender(zap.New(core))

	require.NoError(t, s.Send("a@b", "Recuperação de senha", "<p>x</p>", "link"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "a@b", logs.All()[0].ContextMap()["to"])
	assert.NotContains(t, logs.All()[0].ContextMap(), "body")
}

func TestLogSenderWritesBodyOnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send("a@b", "Recuperação de senha", "<p>x</p>", "https://front/recover/password?token=abc"))
	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		if _, ok := e.ContextMap()["body"]; ok {
			assert.Equal(t, zapcore.DebugLevel, e.Level)
		}
	}
	assert.Equal(t, 1, logs.FilterField(zap.String("body", "https://front/recover/password?token=abc")).Len())
}
