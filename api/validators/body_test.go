package validators

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/portal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	GameLevel string `json:"gameLevel"`
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/setup", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodeBodyForm(t *testing.T) {
	var dest sampleRequest
	err := DecodeBody(formRequest(url.Values{"username": {"alice"}, "password": {"secret"}, "gameLevel": {"1"}, "extra": {"x"}}), &dest)
	require.NoError(t, err)
	assert.Equal(t, sampleRequest{Username: "alice", Password: "secret", GameLevel: "1"}, dest)
}

func TestDecodeBodyFormMissingFields(t *testing.T) {
	var dest sampleRequest
	err := DecodeBody(formRequest(url.Values{"username": {"alice"}}), &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"password": "is required"}, typed.Details())
}

func TestDecodeBodyJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/setup", strings.NewReader(`{"username":"alice","password":"secret","gameLevel":"7"}`))
	req.Header.Set("Content-Type", "application/json")
	var dest sampleRequest
	require.NoError(t, DecodeBody(req, &dest))
	assert.Equal(t, "7", dest.GameLevel)
}

func TestDecodeBodyJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/setup", strings.NewReader(`{"username":"alice","password":"x","admin":true}`))
	req.Header.Set("Content-Type", "application/json")
	var dest sampleRequest
	assert.True(t, pkgerrors.IsCode(DecodeBody(req, &dest), pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString("abc", 0))
}
