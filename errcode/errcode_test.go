package errcode_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pongarena/server/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodesStable(t *testing.T) {
	// These values are part of the wire contract; a failure here means a
	// client-visible code changed.
	assert.Equal(t, 1000, errcode.CodeOK)
	assert.Equal(t, 1002, errcode.ErrAlreadyFriends.Code)
	assert.Equal(t, 1003, errcode.ErrInvalidCredentials.Code)
	assert.Equal(t, 1014, errcode.ErrPlayerNotFound.Code)
	assert.Equal(t, 1015, errcode.ErrSelfRequest.Code)
	assert.Equal(t, 1016, errcode.ErrRequestAlreadySent.Code)
	assert.Equal(t, 1017, errcode.ErrRequestAlreadyReceived.Code)
	assert.Equal(t, 1018, errcode.ErrYouBlockedPlayer.Code)
	assert.Equal(t, 1019, errcode.ErrBlockedByPlayer.Code)
	assert.Equal(t, 1021, errcode.ErrRequestAlreadyHandled.Code)
	assert.Equal(t, 1023, errcode.ErrNotInitiator.Code)
	assert.Equal(t, 1028, errcode.ErrNotYourBlock.Code)
	assert.Equal(t, 1030, errcode.ErrNotAccepted.Code)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, errcode.ErrPasswordMismatch.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, errcode.ErrInvalidCredentials.HTTPStatus())
	assert.Equal(t, http.StatusConflict, errcode.ErrNameTaken.HTTPStatus())
	assert.Equal(t, http.StatusConflict, errcode.ErrRequestAlreadyHandled.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, errcode.ErrRequestNotFound.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, errcode.ErrNotInitiator.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, errcode.ErrInternal.HTTPStatus())
}

func TestFrom(t *testing.T) {
	assert.Equal(t, errcode.ErrNameTaken, errcode.From(errcode.ErrNameTaken))
	assert.Equal(t, errcode.ErrNameTaken, errcode.From(fmt.Errorf("wrap: %w", errcode.ErrNameTaken)))

	// A raw store error must surface as the generic internal code.
	assert.Equal(t, errcode.ErrInternal, errcode.From(fmt.Errorf("dial tcp: connection refused")))
}

func TestLookup(t *testing.T) {
	e := errcode.Lookup(1002)
	require.NotNil(t, e)
	assert.Equal(t, errcode.ErrAlreadyFriends, e)
	assert.Nil(t, errcode.Lookup(9999))
}
