package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"powersim/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapClassifiesDomainErrors(t *testing.T) {
	invalid := Wrap(core.NewInvalidParameterError("sd", "must be positive"), "estimate failed")
	assert.Equal(t, CodeInvalidParameter, GetCode(invalid))
	assert.True(t, stderrors.Is(invalid, core.ErrInvalidParameter))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(invalid))

	missing := Wrap(core.NewTargetNotFoundError(0.8, 2, 10), "sweep failed")
	assert.Equal(t, CodeNotFound, GetCode(missing))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(missing))

	other := Wrap(fmt.Errorf("disk full"), "save failed")
	assert.Equal(t, CodeInternalError, GetCode(other))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(other))
}

func TestWrapKeepsAppErrorCode(t *testing.T) {
	inner := DatabaseError("insert run", fmt.Errorf("locked"))
	outer := Wrapf(inner, "save run %s", "abc")
	assert.Equal(t, CodeDatabaseError, GetCode(outer))
	assert.Equal(t, "save run abc: insert run: locked", outer.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, WithCode(CodeNotFound, nil))
	assert.Equal(t, "", GetCode(nil))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, fmt.Errorf("bad json"))
	assert.True(t, IsAppError(err))
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestCanceled(t *testing.T) {
	err := Canceled(context.Canceled)
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, http.StatusRequestTimeout, HTTPStatus(err))
}
