package fetch

import (
	"fmt"
	"math/rand/v2"
	"net/http"
)

// Profile describes the header shape for one kind of request.
type Profile struct {
	Name     string
	Accept   string
	Headers  map[string]string // static headers sent on every request
	Referers []string          // candidates for an occasional Referer header
	LiTrack  bool              // send a randomized X-Li-Track client descriptor
	XHR      bool              // mark the request as an XMLHttpRequest
}

// ProfileDocument is a top-level page navigation.
var ProfileDocument = Profile{
	Name:   "document",
	Accept: "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	Headers: map[string]string{
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
	},
}

// ProfileAPI is a same-origin XHR fetching an HTML fragment.
var ProfileAPI = Profile{
	Name:   "api",
	Accept: "*/*",
	Headers: map[string]string{
		"Sec-Fetch-Dest": "empty",
		"Sec-Fetch-Mode": "cors",
		"Sec-Fetch-Site": "same-origin",
	},
	XHR: true,
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-US,en;q=0.8,es;q=0.7",
	"en-GB,en;q=0.9,en-US;q=0.8",
	"en-AU,en;q=0.9,en-US;q=0.8",
}

var viewportWidths = []int{1920, 1366, 1440, 1536}

// refererChance is the probability of attaching a Referer when the profile has candidates.
const refererChance = 0.3

// applyHeaders sets the profile headers plus per-request randomized values.
func applyHeaders(req *http.Request, p Profile, id Identity) {
	req.Header.Set("User-Agent", id.UserAgent)
	if p.Accept != "" {
		req.Header.Set("Accept", p.Accept)
	}
	req.Header.Set("Accept-Language", pick(acceptLanguages))
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("DNT", "1")

	width := pick(viewportWidths)
	req.Header.Set("Viewport-Width", fmt.Sprint(width))

	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	if p.XHR {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	if p.LiTrack {
		height := []int{1080, 768, 900, 864}[rand.IntN(4)]
		req.Header.Set("X-Li-Track", fmt.Sprintf(
			`{"clientVersion":"1.13.%d","osName":"web","timezoneOffset":10,"deviceFormFactor":"DESKTOP","mpName":"voyager-web","displayDensity":1,"displayWidth":%d,"displayHeight":%d}`,
			1000+rand.IntN(9000), width, height,
		))
	}

	if len(p.Referers) > 0 && rand.Float64() < refererChance {
		req.Header.Set("Referer", pick(p.Referers))
	}
}

func pick[T any](xs []T) T {
	return xs[rand.IntN(len(xs))]
}
