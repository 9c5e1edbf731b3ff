package fetch

import (
	"math/rand/v2"
	"net/url"
	"sync/atomic"
)

// DefaultUserAgents is the persona pool used when none is configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Identity is the persona presented on a request. Values are never mutated;
// rotation swaps in a new Identity.
type Identity struct {
	UserAgent string
	Proxy     *url.URL // nil for a direct connection
	Requests  int      // requests sent with this user agent
	RotateAt  int      // request count that triggers a cadence rotation

	uaIndex    int
	proxyIndex int
}

// identityPool owns the current Identity and the cursors into the agent and proxy lists.
type identityPool struct {
	agents    []string
	proxies   []*url.URL
	rotateMin int
	rotateMax int
	current   atomic.Pointer[Identity]
}

func newIdentityPool(agents []string, proxies []*url.URL, rotateMin, rotateMax int) *identityPool {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	if rotateMin <= 0 {
		rotateMin = 3
	}
	if rotateMax < rotateMin {
		rotateMax = rotateMin
	}
	p := &identityPool{
		agents:    agents,
		proxies:   proxies,
		rotateMin: rotateMin,
		rotateMax: rotateMax,
	}
	first := &Identity{
		uaIndex:  rand.IntN(len(agents)),
		RotateAt: p.nextRotateAt(),
	}
	first.UserAgent = agents[first.uaIndex]
	if len(proxies) > 0 {
		first.Proxy = proxies[0]
	}
	p.current.Store(first)
	return p
}

func (p *identityPool) nextRotateAt() int {
	return p.rotateMin + rand.IntN(p.rotateMax-p.rotateMin+1)
}

// Current returns the active identity.
func (p *identityPool) Current() Identity {
	return *p.current.Load()
}

// next returns the identity to use for the next request, rotating the user
// agent first if the cadence threshold has been reached.
func (p *identityPool) next() Identity {
	for {
		old := p.current.Load()
		n := *old
		if n.Requests >= n.RotateAt {
			n = p.rotated(n, false)
		}
		n.Requests++
		if p.current.CompareAndSwap(old, &n) {
			return n
		}
	}
}

// rotate replaces the user agent, and the proxy too when withProxy is set.
func (p *identityPool) rotate(withProxy bool) Identity {
	for {
		old := p.current.Load()
		n := p.rotated(*old, withProxy)
		if p.current.CompareAndSwap(old, &n) {
			return n
		}
	}
}

// advanceProxy moves to the next proxy in round-robin order, keeping the user agent.
func (p *identityPool) advanceProxy() Identity {
	for {
		old := p.current.Load()
		n := *old
		p.stepProxy(&n)
		if p.current.CompareAndSwap(old, &n) {
			return n
		}
	}
}

func (p *identityPool) rotated(id Identity, withProxy bool) Identity {
	if len(p.agents) > 1 {
		step := 1 + rand.IntN(len(p.agents)-1)
		id.uaIndex = (id.uaIndex + step) % len(p.agents)
	}
	id.UserAgent = p.agents[id.uaIndex]
	id.Requests = 0
	id.RotateAt = p.nextRotateAt()
	if withProxy {
		p.stepProxy(&id)
	}
	return id
}

func (p *identityPool) stepProxy(id *Identity) {
	if len(p.proxies) == 0 {
		return
	}
	id.proxyIndex = (id.proxyIndex + 1) % len(p.proxies)
	id.Proxy = p.proxies[id.proxyIndex]
}
