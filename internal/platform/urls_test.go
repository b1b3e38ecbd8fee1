package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileURLTwitter(t *testing.T) {
	for _, raw := range []string{
		"https://twitter.com/jack",
		"https://x.com/jack",
		"https://www.twitter.com/@jack",
		"x.com/jack/",
	} {
		ref, err := ParseProfileURL(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "twitter", ref.Platform)
		assert.Equal(t, "jack", ref.Handle)
		assert.Equal(t, RefHandle, ref.Kind)
	}
}

func TestParseProfileURLTwitterReservedPath(t *testing.T) {
	_, err := ParseProfileURL("https://twitter.com/search?q=golang")
	require.ErrorIs(t, err, ErrInvalidProfileURL)
}

func TestParseProfileURLInstagram(t *testing.T) {
	ref, err := ParseProfileURL("https://www.instagram.com/natgeo/")
	require.NoError(t, err)
	assert.Equal(t, "instagram", ref.Platform)
	assert.Equal(t, "natgeo", ref.Handle)

	_, err = ParseProfileURL("https://www.instagram.com/p/Cxyz123/")
	require.ErrorIs(t, err, ErrInvalidProfileURL)
}

func TestParseProfileURLYouTubeVariants(t *testing.T) {
	tests := []struct {
		raw  string
		kind RefKind
		id   string
	}{
		{"https://youtube.com/channel/UC_x5XG1OV2P6uZZ5FSM9Ttw", RefChannelID, "UC_x5XG1OV2P6uZZ5FSM9Ttw"},
		{"https://www.youtube.com/c/GoogleDevelopers", RefCustomURL, "GoogleDevelopers"},
		{"https://www.youtube.com/user/GoogleDevelopers", RefLegacyUser, "GoogleDevelopers"},
		{"https://www.youtube.com/@googledev", RefHandle, "googledev"},
	}

	for _, tt := range tests {
		ref, err := ParseProfileURL(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, "youtube", ref.Platform, tt.raw)
		assert.Equal(t, tt.kind, ref.Kind, tt.raw)
		if tt.kind == RefChannelID {
			assert.Equal(t, tt.id, ref.AccountID, tt.raw)
		} else {
			assert.Equal(t, tt.id, ref.Handle, tt.raw)
		}
	}
}

func TestParseProfileURLYouTubeNonProfilePaths(t *testing.T) {
	for _, raw := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abc123",
		"https://www.youtube.com/playlist?list=PL123",
	} {
		_, err := ParseProfileURL(raw)
		require.ErrorIs(t, err, ErrInvalidProfileURL, raw)
	}
}

func TestParseProfileURLLinkedIn(t *testing.T) {
	ref, err := ParseProfileURL("https://www.linkedin.com/in/satyanadella")
	require.NoError(t, err)
	assert.Equal(t, "linkedin", ref.Platform)
	assert.Equal(t, "satyanadella", ref.Handle)
	assert.Equal(t, RefHandle, ref.Kind)

	ref, err = ParseProfileURL("https://www.linkedin.com/company/microsoft/")
	require.NoError(t, err)
	assert.Equal(t, RefCompany, ref.Kind)
	assert.Equal(t, "microsoft", ref.Handle)
}

func TestParseProfileURLFacebook(t *testing.T) {
	ref, err := ParseProfileURL("https://www.facebook.com/zuck")
	require.NoError(t, err)
	assert.Equal(t, "facebook", ref.Platform)
	assert.Equal(t, "zuck", ref.Handle)

	ref, err = ParseProfileURL("https://www.facebook.com/profile.php?id=4")
	require.NoError(t, err)
	assert.Equal(t, "4", ref.AccountID)
	assert.Equal(t, RefAccountID, ref.Kind)

	ref, err = ParseProfileURL("https://www.facebook.com/pages/Some-Page/123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", ref.AccountID)

	_, err = ParseProfileURL("https://www.facebook.com/marketplace/item/1")
	require.ErrorIs(t, err, ErrInvalidProfileURL)
}

func TestParseProfileURLUnsupportedHost(t *testing.T) {
	_, err := ParseProfileURL("https://tiktok.com/@someone")
	require.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestParseProfileURLGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url at all %%%"} {
		_, err := ParseProfileURL(raw)
		require.Error(t, err, raw)
	}
}
