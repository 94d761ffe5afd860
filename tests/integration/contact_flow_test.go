//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bguvava/portfolio/internal/models"
)

func TestContactFlow_Postgres(t *testing.T) {
	cleanTables(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	client := ts.NewClient()
	token, err := ts.FetchToken(client)
	require.NoError(t, err)
	require.Len(t, token, 64)

	loadedAt := time.Now().Add(-5 * time.Second)

	resp, err := ts.PostContact(client, ContactForm("first", token, loadedAt))
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, models.MessageSent, resp.Message)
	assert.NotEqual(t, token, resp.CSRFToken)
	require.Equal(t, 1, ts.EmailService.Count())
	assert.Equal(t, "Portfolio Contact: Integration first", ts.EmailService.GetLastEmail().Subject)

	records, err := ts.Repository.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "127.0.0.1", records[0].Key)
	assert.Equal(t, 1, records[0].Count)

	// Four more attempts fill the window, the sixth is refused
	token = resp.CSRFToken
	for i := 0; i < 4; i++ {
		resp, err = ts.PostContact(client, ContactForm("more", token, loadedAt))
		require.NoError(t, err)
		require.True(t, resp.Success, resp.Message)
		token = resp.CSRFToken
	}

	resp, err = ts.PostContact(client, ContactForm("blocked", token, loadedAt))
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, models.MessageRateLimited, resp.Message)
	assert.Equal(t, token, resp.CSRFToken, "rate limited attempts keep the token")
	assert.Equal(t, 5, ts.EmailService.Count())
}

func TestContactFlow_SpamIsSilent(t *testing.T) {
	cleanTables(t)
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	client := ts.NewClient()
	token, err := ts.FetchToken(client)
	require.NoError(t, err)

	form := ContactForm("spam", token, time.Now().Add(-5*time.Second))
	form.Set("website", "http://spam.example")

	resp, err := ts.PostContact(client, form)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, models.MessageGeneric, resp.Message)
	assert.Equal(t, 0, ts.EmailService.Count())
}

func TestHealth_Postgres(t *testing.T) {
	ts := NewTestServer(testDB.DB)
	defer ts.Close()

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
