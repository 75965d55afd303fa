package mqtt

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// pingerSeq distinguishes timer names when several clients share one
// TimerService.
var pingerSeq atomic.Uint64

// keepAlivePinger drives the PINGREQ chain for one transport attachment.
// Once armed it fires on a fixed schedule, sending a ping straight at the
// transport and re-arming itself with the same interval. The schedule is not
// reset by other traffic.
//
// Each arm starts a new generation; cancel invalidates the previous one, so
// a ping never fires against a connection that was since torn down.
type keepAlivePinger struct {
	timers TimerService
	name   string

	mu         sync.Mutex
	generation uint64
	interval   time.Duration
	send       func()
}

func newKeepAlivePinger(timers TimerService) *keepAlivePinger {
	return &keepAlivePinger{
		timers: timers,
		name:   fmt.Sprintf("mqtt-keepalive-%d", pingerSeq.Add(1)),
	}
}

// arm starts the ping chain. An interval of zero disables keep-alive. The
// send func must write directly to the transport, bypassing the pending
// queue; arming only happens after a transport is attached.
func (p *keepAlivePinger) arm(seconds uint16, send func()) {
	p.mu.Lock()
	p.generation++
	if seconds == 0 {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	p.interval = time.Duration(seconds) * time.Second
	p.send = send
	p.mu.Unlock()

	p.timers.Schedule(p.name, p.interval, func(string) { p.fire(gen) })
}

// fire sends one ping and re-arms, unless the generation was cancelled.
func (p *keepAlivePinger) fire(gen uint64) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	send := p.send
	interval := p.interval
	p.mu.Unlock()

	send()
	p.timers.Schedule(p.name, interval, func(string) { p.fire(gen) })
}

// cancel stops the chain. Safe to call when never armed.
func (p *keepAlivePinger) cancel() {
	p.mu.Lock()
	p.generation++
	p.mu.Unlock()

	p.timers.Cancel(p.name)
}
