package http_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menugr/menugr/pkg/http"
	"github.com/menugr/menugr/pkg/testkit"
)

func TestGetWithQuery(t *testing.T) {
	mt := testkit.NewMockTransport().On("GET", "http://api.test/items?b=7", 200, map[string]any{"ok": true})
	http.DefaultClient.Transport = mt
	defer http.ResetTransport()

	c := http.NewClient("http://api.test/", time.Second, 0)
	resp, err := c.Get("/items").Query("b", "7").Send()
	require.NoError(t, err)
	require.NoError(t, resp.Throw())

	var out struct{ OK bool }
	require.NoError(t, resp.JSON(&out))
	assert.True(t, out.OK)
	mt.AssertAllCalled(t)
}

func TestPostSendsJSONBody(t *testing.T) {
	mt := testkit.NewMockTransport().On("POST", "http://api.test/scan", 201, `{}`)
	http.DefaultClient.Transport = mt
	defer http.ResetTransport()

	c := http.NewClient("http://api.test", time.Second, 0)
	_, err := c.Post("scan").Body(map[string]string{"qr_slug": "t1"}).Send()
	require.NoError(t, err)

	reqs := mt.Requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"qr_slug":"t1"}`, string(reqs[0].Body))
}

func TestRetriesServerErrors(t *testing.T) {
	mt := testkit.NewMockTransport().On("GET", "http://api.test/", 503, `down`)
	http.DefaultClient.Transport = mt
	defer http.ResetTransport()

	c := http.NewClient("http://api.test", time.Second, 2)
	c.RetryWait = time.Millisecond
	resp, err := c.Get("x").Send()
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, 3, mt.Calls("http://api.test/x"))
	assert.True(t, errors.Is(resp.Throw(), http.ErrStatus))
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	mt := testkit.NewMockTransport().On("GET", "http://api.test/", 404, `{}`)
	http.DefaultClient.Transport = mt
	defer http.ResetTransport()

	c := http.NewClient("http://api.test", time.Second, 3)
	resp, err := c.Get("missing").Send()
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, 1, mt.Calls("http://api.test/missing"))
}

func TestTransportErrorExhaustsAttempts(t *testing.T) {
	mt := testkit.NewMockTransport().Fail("", "http://api.test/", errors.New("connection refused"))
	http.DefaultClient.Transport = mt
	defer http.ResetTransport()

	c := http.NewClient("http://api.test", time.Second, 1)
	c.RetryWait = time.Millisecond
	_, err := c.Get("x").WithContext(context.Background()).Send()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.Equal(t, 2, mt.Calls("http://api.test/x"))
}
