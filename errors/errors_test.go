package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapFormatsContext(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Manifest", "Load", "read blob")
	assert.EqualError(t, err, "Manifest.Load: read blob failed: boom")
	assert.True(t, stderrors.Is(err, base))

	assert.Nil(t, Wrap(nil, "Manifest", "Load", "read blob"))
}

func TestClassifiedWrappers(t *testing.T) {
	base := stderrors.New("boom")

	tr := WrapTransient(base, "Partition", "Save", "write cache blob")
	assert.True(t, IsTransient(tr))
	assert.False(t, IsFatal(tr))
	assert.True(t, stderrors.Is(tr, base))

	inv := WrapInvalid(base, "Collection", "Put", "validate id")
	assert.True(t, IsInvalid(inv))
	assert.False(t, IsTransient(inv))

	fat := WrapFatal(base, "Partition", "List", "decode cache blob")
	assert.True(t, IsFatal(fat))
	assert.Equal(t, ErrorFatal, Classify(fat))
}

func TestIsTransientKnownSentinels(t *testing.T) {
	assert.True(t, IsTransient(ErrStorageUnavailable))
	assert.True(t, IsTransient(ErrConnectionTimeout))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(fmt.Errorf("dial tcp: connection refused")))
	assert.False(t, IsTransient(nil))
}

func TestIsFatalSentinels(t *testing.T) {
	assert.True(t, IsFatal(ErrDataCorrupted))
	assert.True(t, IsFatal(fmt.Errorf("load: %w", ErrInvalidConfig)))
	assert.False(t, IsFatal(ErrKeyNotFound))
}

func TestClassifyDefaultsToTransient(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(stderrors.New("mystery")))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
}

func TestUnwrapPreservesChain(t *testing.T) {
	base := stderrors.New("boom")
	err := WrapTransient(base, "c", "m", "a")

	var ce *ClassifiedError
	assert.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "c", ce.Component)
	assert.Equal(t, "m", ce.Operation)
	assert.True(t, stderrors.Is(ce.Unwrap(), base))
}
