package authclient

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToken_redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tok := SessionToken("secret-token")
	assert.Equal(RedactedSessionToken, tok.String())
	assert.Equal(RedactedSessionToken, fmt.Sprintf("%s", tok))

	got, err := json.Marshal(tok)
	require.NoError(err)
	assert.Equal(fmt.Sprintf("%q", RedactedSessionToken), string(got))
}

func TestSession_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	raw := `{
		"id": "sess-1",
		"userId": "user-1",
		"token": "secret-token",
		"expiresAt": "2026-10-22T10:00:00.000Z",
		"ipAddress": "",
		"userAgent": "curl/8.0",
		"createdAt": "2026-10-15T10:00:00.000Z",
		"updatedAt": "2026-10-15T10:00:00.000Z"
	}`
	var s Session
	require.NoError(json.Unmarshal([]byte(raw), &s))
	assert.Equal("sess-1", s.ID)
	assert.Equal("user-1", s.UserID)
	assert.Equal(SessionToken("secret-token"), s.Token)
	assert.Equal("curl/8.0", s.UserAgent)
	assert.False(s.IsExpired(time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)))
	assert.True(s.IsExpired(time.Date(2026, 10, 22, 10, 0, 0, 0, time.UTC)))

	out, err := json.Marshal(s)
	require.NoError(err)
	assert.NotContains(string(out), "secret-token")
}

func TestUser_nullImage(t *testing.T) {
	t.Parallel()
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","name":"Alice","email":"a@example.com","emailVerified":true,"image":null}`), &u))
	assert.Empty(t, u.Image)
	assert.True(t, u.EmailVerified)
}
