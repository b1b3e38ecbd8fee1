package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrUnsupportedURL    = errors.New("url does not match a supported platform")
	ErrInvalidProfileURL = errors.New("url does not point to a profile")
)

var twitterReserved = map[string]bool{
	"home": true, "explore": true, "notifications": true, "messages": true,
	"search": true, "settings": true, "i": true, "hashtag": true,
	"intent": true, "share": true, "login": true,
}

var instagramReserved = map[string]bool{
	"p": true, "reel": true, "reels": true, "stories": true, "explore": true,
	"tv": true, "accounts": true, "direct": true,
}

var facebookReserved = map[string]bool{
	"groups": true, "events": true, "watch": true, "marketplace": true,
	"gaming": true, "help": true, "login": true, "sharer": true, "share.php": true,
}

// ParseProfileURL detects the platform from a public profile URL and
// extracts the identifier the read APIs need. YouTube URLs resolve to one
// of four identifier kinds since channel ids, custom URLs, legacy usernames
// and handles each require a different lookup.
func ParseProfileURL(raw string) (*ProfileRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidProfileURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProfileURL, raw)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	segs := splitPath(u.Path)

	switch host {
	case "twitter.com", "x.com":
		return parseHandleURL("twitter", segs, twitterReserved)
	case "instagram.com":
		return parseHandleURL("instagram", segs, instagramReserved)
	case "youtube.com":
		return parseYouTubeURL(segs)
	case "linkedin.com":
		return parseLinkedInURL(segs)
	case "facebook.com", "fb.com":
		return parseFacebookURL(u, segs)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, host)
}

func splitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func parseHandleURL(platform string, segs []string, reserved map[string]bool) (*ProfileRef, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: missing %s handle", ErrInvalidProfileURL, platform)
	}
	handle := strings.TrimPrefix(segs[0], "@")
	if handle == "" || reserved[strings.ToLower(segs[0])] {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidProfileURL, platform, segs[0])
	}
	return &ProfileRef{Platform: platform, Handle: handle, Kind: RefHandle}, nil
}

func parseYouTubeURL(segs []string) (*ProfileRef, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: missing youtube channel", ErrInvalidProfileURL)
	}

	switch strings.ToLower(segs[0]) {
	case "channel":
		if len(segs) < 2 {
			return nil, fmt.Errorf("%w: missing channel id", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "youtube", AccountID: segs[1], Kind: RefChannelID}, nil
	case "c":
		if len(segs) < 2 {
			return nil, fmt.Errorf("%w: missing custom url", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "youtube", Handle: segs[1], Kind: RefCustomURL}, nil
	case "user":
		if len(segs) < 2 {
			return nil, fmt.Errorf("%w: missing legacy username", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "youtube", Handle: segs[1], Kind: RefLegacyUser}, nil
	case "watch", "shorts", "playlist", "results", "feed":
		return nil, fmt.Errorf("%w: youtube/%s", ErrInvalidProfileURL, segs[0])
	}

	if strings.HasPrefix(segs[0], "@") {
		handle := strings.TrimPrefix(segs[0], "@")
		if handle == "" {
			return nil, fmt.Errorf("%w: empty youtube handle", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "youtube", Handle: handle, Kind: RefHandle}, nil
	}
	return nil, fmt.Errorf("%w: youtube/%s", ErrInvalidProfileURL, segs[0])
}

func parseLinkedInURL(segs []string) (*ProfileRef, error) {
	if len(segs) < 2 {
		return nil, fmt.Errorf("%w: missing linkedin profile path", ErrInvalidProfileURL)
	}
	switch strings.ToLower(segs[0]) {
	case "in":
		return &ProfileRef{Platform: "linkedin", Handle: segs[1], Kind: RefHandle}, nil
	case "company", "school":
		return &ProfileRef{Platform: "linkedin", Handle: segs[1], Kind: RefCompany}, nil
	}
	return nil, fmt.Errorf("%w: linkedin/%s", ErrInvalidProfileURL, segs[0])
}

func parseFacebookURL(u *url.URL, segs []string) (*ProfileRef, error) {
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: missing facebook page", ErrInvalidProfileURL)
	}

	switch strings.ToLower(segs[0]) {
	case "profile.php":
		id := u.Query().Get("id")
		if id == "" {
			return nil, fmt.Errorf("%w: profile.php without id", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "facebook", AccountID: id, Kind: RefAccountID}, nil
	case "people":
		if len(segs) < 3 {
			return nil, fmt.Errorf("%w: incomplete people path", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "facebook", AccountID: segs[2], Kind: RefAccountID}, nil
	case "pages":
		if len(segs) < 3 {
			return nil, fmt.Errorf("%w: incomplete pages path", ErrInvalidProfileURL)
		}
		return &ProfileRef{Platform: "facebook", AccountID: segs[2], Kind: RefAccountID}, nil
	}

	if facebookReserved[strings.ToLower(segs[0])] {
		return nil, fmt.Errorf("%w: facebook/%s", ErrInvalidProfileURL, segs[0])
	}
	return &ProfileRef{Platform: "facebook", Handle: segs[0], Kind: RefHandle}, nil
}
