package llm

import (
	"math/rand"
	"sync"
)

// ProxyPool hands out proxy URLs for providers that are only reachable from
// some regions. Invalidated proxies are not handed out again.
type ProxyPool struct {
	mu      sync.Mutex
	proxies []string
}

func NewProxyPool(proxies []string) *ProxyPool {
	return &ProxyPool{proxies: append([]string(nil), proxies...)}
}

// Get returns a random live proxy, or false when the pool is exhausted.
func (p *ProxyPool) Get() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.proxies) == 0 {
		return "", false
	}
	return p.proxies[rand.Intn(len(p.proxies))], true
}

func (p *ProxyPool) Invalidate(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, candidate := range p.proxies {
		if candidate == proxy {
			p.proxies = append(p.proxies[:i], p.proxies[i+1:]...)
			return
		}
	}
}

func (p *ProxyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}
