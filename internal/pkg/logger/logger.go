package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service, Repository) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
}

// ZeroLogger implementa Logger sobre o zerolog, com saída JSON.
type ZeroLogger struct {
	zl zerolog.Logger
}

// NewLogger cria o Logger padrão da aplicação escrevendo em stdout.
// Esta função é chamada no main.go.
func NewLogger(level string) Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter permite direcionar a saída (útil em testes).
func NewWithWriter(w io.Writer, level string) Logger {
	zl := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))
	return &ZeroLogger{zl: zl}
}

// Nop descarta todas as entradas.
func Nop() Logger {
	return &ZeroLogger{zl: zerolog.Nop()}
}

// Zerolog expõe o logger subjacente para middlewares HTTP.
func (l *ZeroLogger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *ZeroLogger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, err error) {
	l.zl.Error().Err(err).Msg(msg)
}

// Fatal registra a entrada e encerra o processo.
func (l *ZeroLogger) Fatal(msg string, err error) {
	l.zl.Fatal().Err(err).Msg(msg)
}

// ZerologOf devolve o zerolog por trás de l, ou um logger descartável.
func ZerologOf(l Logger) zerolog.Logger {
	if zl, ok := l.(interface{ Zerolog() *zerolog.Logger }); ok {
		return *zl.Zerolog()
	}
	return zerolog.Nop()
}
