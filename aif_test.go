package aif

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentString(t *testing.T) {
	assert.Equal(t, "aim:A", NewComponent("A", KindAIM).String())
	assert.Equal(t, "aiw:CAE-REV", NewComponent("CAE-REV", KindAIW).String())
	assert.Equal(t, "aif:demo", NewComponent("demo", KindAIF).String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestChannelValid(t *testing.T) {
	assert.False(t, Channel(0).Valid())
	assert.False(t, NoChannel.Valid())
	assert.True(t, Channel(1).Valid())
}

func TestMessageCloneDetachesPayload(t *testing.T) {
	msg := Message{Data: []byte("abc"), Timestamp: 7}
	cp := msg.Clone()
	cp.Data[0] = 'z'

	assert.Equal(t, "abc", string(msg.Data))
	assert.Equal(t, int64(7), cp.Timestamp)
	assert.Nil(t, Message{}.Clone().Data)
}

func TestCloneErrorKeepsCode(t *testing.T) {
	cause := fmt.Errorf("disk gone")
	err := CloneError(ErrDocumentNotFound, "aim A missing", cause, map[string]any{"name": "A"})

	assert.Equal(t, "aim A missing", err.Message)
	assert.Equal(t, ErrCodeDocumentNotFound, err.TextCode)
	assert.Equal(t, "A", err.Metadata["name"])
	assert.Same(t, cause, err.Source)
	assert.Equal(t, "metadata document not found", ErrDocumentNotFound.Message, "sentinel must not change")
}

func TestCloneErrorDefaultsToBringUp(t *testing.T) {
	err := CloneError(nil, "  ", nil, nil)
	assert.Equal(t, ErrCodeBringUpFailed, err.TextCode)
	assert.Equal(t, ErrBringUpFailed.Message, err.Message)
}

type multiErr struct{ errs []error }

func (m multiErr) Error() string   { return "multi" }
func (m multiErr) Unwrap() []error { return m.errs }

func TestHasCode(t *testing.T) {
	skipped := CloneError(ErrCreationSkipped, "", nil, nil)
	wrapped := CloneError(ErrBringUpFailed, "", skipped, nil)

	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"nil", nil, ErrCodeNilAIM, false},
		{"empty code", ErrNilAIM, "", false},
		{"direct", ErrNilAIM, ErrCodeNilAIM, true},
		{"other", ErrNilAIM, ErrCodeAIMDestroyed, false},
		{"fmt wrapped", fmt.Errorf("ctx: %w", ErrStoreClosed), ErrCodeStoreClosed, true},
		{"source", wrapped, ErrCodeCreationSkipped, true},
		{"joined", stderrors.Join(fmt.Errorf("plain"), ErrNoMessage), ErrCodeNoMessage, true},
		{"multi unwrap", multiErr{errs: []error{ErrNilStore, wrapped}}, ErrCodeCreationSkipped, true},
		{"plain", fmt.Errorf("plain"), ErrCodeNilAIM, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCode(tt.err, tt.code))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeCatalogSealed, ErrorCode(fmt.Errorf("x: %w", ErrCatalogSealed)))
	assert.Empty(t, ErrorCode(fmt.Errorf("plain")))

	var ge *apperrors.Error
	require.True(t, stderrors.As(ErrInvalidConfig, &ge))
	assert.Equal(t, ErrCodeInvalidConfig, ge.TextCode)
}

func TestResultCodes(t *testing.T) {
	assert.Equal(t, OK, CodeOf(nil))
	assert.Equal(t, CreationSkipped, CodeOf(fmt.Errorf("a: %w", ErrCreationSkipped)))
	assert.Equal(t, ResultError, CodeOf(ErrAIMNotFound))

	assert.Equal(t, AIMAlive, StatusOf(true))
	assert.Equal(t, AIMDead, StatusOf(false))

	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "AIM_ALIVE", AIMAlive.String())
	assert.Equal(t, "AIM_DEAD", AIMDead.String())
	assert.Equal(t, "CREATION_SKIPPED", CreationSkipped.String())
	assert.Equal(t, "ERROR", ResultError.String())
}

func TestFmtLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := WithFields(NewFmtLogger(&buf), map[string]any{"workflow": "1", "aim": "A"})
	logger = logger.WithContext(context.Background())

	logger.Info("started %d", 3)

	line := buf.String()
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "started 3")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "aim=A workflow=1"), line)
}

func TestFmtLoggerFieldsDoNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := NewFmtLogger(&buf)
	_ = base.WithFields(map[string]any{"k": "v"})

	base.Warn("plain")
	assert.NotContains(t, buf.String(), "k=v")
}

func TestNormalizeLogger(t *testing.T) {
	assert.NotNil(t, NormalizeLogger(nil))

	logger := NewFmtLogger(&bytes.Buffer{})
	assert.Same(t, logger, NormalizeLogger(logger))
}

func TestGlogLoggerWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewGlogLogger(&buf, "debug")

	WithFields(logger, map[string]any{"workflow": "1"}).Info("bring-up done")

	assert.Contains(t, buf.String(), "bring-up done")
}

func TestMakePanicHandlerRecovers(t *testing.T) {
	var (
		gotName   string
		gotErr    any
		gotFields map[string]any
	)
	handler := MakePanicHandler(func(funcName string, err any, stack []byte, fields ...map[string]any) {
		gotName = funcName
		gotErr = err
		if len(fields) > 0 {
			gotFields = fields[0]
		}
	})

	require.NotPanics(t, func() {
		defer handler("consume", map[string]any{"aim": "A"})
		panic("boom")
	})

	assert.Equal(t, "consume", gotName)
	assert.Equal(t, "boom", gotErr)
	assert.Equal(t, "A", gotFields["aim"])
}

func TestLoggerPanicHandlerFormatsFields(t *testing.T) {
	var buf bytes.Buffer
	report := LoggerPanicHandler(NewFmtLogger(&buf))

	report("consume", "boom", []byte("main.go:1"), map[string]any{"b": 2, "a": 1})

	out := buf.String()
	assert.Contains(t, out, "recovered from panic in consume: boom (string)")
	assert.Less(t, strings.Index(out, "a: 1"), strings.Index(out, "b: 2"))
	assert.Contains(t, out, "main.go:1")
}

func TestCleanStackTraceDropsPanicFrame(t *testing.T) {
	stack := strings.Join([]string{
		"goroutine 1 [running]:",
		"panic({0x1, 0x2})",
		"\t/usr/local/go/src/runtime/panic.go:770",
		"main.work()",
		"\t/app/main.go:12",
	}, "\n")

	out := string(cleanStackTrace([]byte(stack)))
	assert.True(t, strings.HasPrefix(out, "main.work()"), out)
	assert.NotContains(t, out, "panic(")
}
