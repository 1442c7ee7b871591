package linkstate

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec(testSecret, 10*time.Minute)

	cases := []LinkState{
		{ReturnPath: "/dashboard", Intent: identity.IntentLogin},
		{ReturnPath: "/passport/settings?tab=connections", Intent: identity.IntentLink, RequestingUserID: "7f9c24e5-1fa9-4dcb-9a8e-6f1d06cba0c1"},
		{Intent: identity.IntentLogin},
		{},
	}

	for _, want := range cases {
		encoded, err := codec.Encode(want)
		require.NoError(t, err)

		got, err := codec.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCodec_EncodedFormIsURLSafe(t *testing.T) {
	codec := NewCodec(testSecret, 10*time.Minute)

	encoded, err := codec.Encode(LinkState{
		ReturnPath: "/dashboard?welcome=1&from=discord",
		Intent:     identity.IntentLink,
	})
	require.NoError(t, err)

	// The token travels as a query parameter through a third party that
	// may re-encode it: escaping must be a no-op.
	assert.Equal(t, encoded, url.QueryEscape(encoded))
}

func TestCodec_DecodeRejectsTampering(t *testing.T) {
	codec := NewCodec(testSecret, 10*time.Minute)

	encoded, err := codec.Encode(LinkState{ReturnPath: "/dashboard", Intent: identity.IntentLogin})
	require.NoError(t, err)

	// Flip a character in the payload segment.
	parts := strings.Split(encoded, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = codec.Decode(tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCodec_DecodeRejectsWrongSecret(t *testing.T) {
	codec := NewCodec(testSecret, 10*time.Minute)
	other := NewCodec("another-secret-another-secret-32", 10*time.Minute)

	encoded, err := codec.Encode(LinkState{ReturnPath: "/dashboard"})
	require.NoError(t, err)

	_, err = other.Decode(encoded)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCodec_DecodeRejectsExpired(t *testing.T) {
	codec := NewCodec(testSecret, -1*time.Minute)

	encoded, err := codec.Encode(LinkState{ReturnPath: "/dashboard"})
	require.NoError(t, err)

	_, err = codec.Decode(encoded)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCodec_DecodeRejectsGarbage(t *testing.T) {
	codec := NewCodec(testSecret, 10*time.Minute)

	for _, raw := range []string{"", "/dashboard", "not.a.token", "a.b"} {
		_, err := codec.Decode(raw)
		assert.ErrorIs(t, err, ErrDecode, "input %q", raw)
	}
}

func TestCodec_NonceDiffersPerEncode(t *testing.T) {
	codec := NewCodec(testSecret, 10*time.Minute)

	s := LinkState{ReturnPath: "/dashboard", Intent: identity.IntentLogin}
	first, err := codec.Encode(s)
	require.NoError(t, err)
	second, err := codec.Encode(s)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
