package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownPlatform(t *testing.T) {
	for _, platform := range []string{PlatformTwitter, PlatformInstagram, PlatformYouTube, PlatformLinkedIn, PlatformFacebook} {
		assert.True(t, KnownPlatform(platform), platform)
	}
	assert.False(t, KnownPlatform("tiktok"))
	assert.False(t, KnownPlatform(""))
	assert.False(t, KnownPlatform("Twitter"))
}

func TestValidPostType(t *testing.T) {
	cases := []struct {
		platform string
		postType string
		want     bool
	}{
		{PlatformTwitter, "tweet", true},
		{PlatformTwitter, "thread", true},
		{PlatformTwitter, "poll", true},
		{PlatformTwitter, "reel", false},
		{PlatformInstagram, "reel", true},
		{PlatformInstagram, "carousel", true},
		{PlatformInstagram, "tweet", false},
		{PlatformYouTube, "video", true},
		{PlatformYouTube, "short", true},
		{PlatformYouTube, "story", false},
		{PlatformLinkedIn, "article", true},
		{PlatformLinkedIn, "photo", false},
		{PlatformFacebook, "photo", true},
		{PlatformFacebook, "post", true},
		{"tiktok", "video", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ValidPostType(tc.platform, tc.postType), "%s/%s", tc.platform, tc.postType)
	}
}
