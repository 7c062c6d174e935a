package readapi

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replane-dev/replane-sub002/internal/apierr"
)

func TestParseValueRequest_RequiresEnvironmentID(t *testing.T) {
	r := httptest.NewRequest("GET", "/projects/p1/configs/limits/value", nil)
	_, err := parseValueRequest(r, "p1", "limits")

	var badReq *apierr.ErrBadRequest
	require.ErrorAs(t, err, &badReq)
}

func TestParseValueRequest_AcceptsWellFormedRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/projects/p1/configs/limits/value?environmentId=env-prod", nil)
	req, err := parseValueRequest(r, "p1", "limits")

	require.NoError(t, err)
	assert.Equal(t, "p1", req.ProjectID)
	assert.Equal(t, "limits", req.Name)
	assert.Equal(t, "env-prod", req.EnvironmentID)
}

func TestParseContext_EmptyDefaultsToEmptyObject(t *testing.T) {
	r := httptest.NewRequest("GET", "/projects/p1/configs", nil)
	ctx, err := parseContext(r)

	require.NoError(t, err)
	assert.Empty(t, ctx)
}

func TestParseContext_ParsesJSONObject(t *testing.T) {
	r := httptest.NewRequest("GET", "/projects/p1/configs?context=%7B%22tier%22%3A%22beta%22%7D", nil)
	ctx, err := parseContext(r)

	require.NoError(t, err)
	assert.Equal(t, "beta", ctx["tier"])
}

func TestParseContext_RejectsNonObjectJSON(t *testing.T) {
	r := httptest.NewRequest("GET", "/projects/p1/configs?context=%5B1%2C2%5D", nil)
	_, err := parseContext(r)

	var badReq *apierr.ErrBadRequest
	require.ErrorAs(t, err, &badReq)
}
