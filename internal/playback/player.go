package playback

import (
	"errors"
	"math"
	"slices"
	"sync"
)

var ErrInvalidSelection = errors.New("selection must satisfy 0 <= start < end <= duration")

// EventType identifies a playback notification.
type EventType int

const (
	EventTimeUpdate EventType = iota
	EventPlay
	EventPause
	EventStopped
	EventEnded
	EventDurationChange
)

func (t EventType) String() string {
	switch t {
	case EventTimeUpdate:
		return "timeupdate"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventStopped:
		return "stopped"
	case EventEnded:
		return "ended"
	case EventDurationChange:
		return "durationchange"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners with the player state at emission time.
type Event struct {
	Type    EventType
	Time    float64
	Playing bool
}

// Listener receives events synchronously, in emission order.
type Listener func(Event)

// Player tracks the playback position of one media element and the selected
// range within it. Time is advanced by the media source through Tick.
type Player struct {
	mu        sync.Mutex
	current   float64
	duration  float64
	start     float64
	end       float64
	playing   bool
	seeking   bool
	nextID    int
	listeners map[int]Listener
}

func NewPlayer() *Player {
	return &Player{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns the func that removes it.
func (p *Player) Subscribe(l Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// SetDuration records the media length and resets the selection to all of it.
func (p *Player) SetDuration(d float64) {
	if d < 0 || math.IsNaN(d) {
		d = 0
	}

	p.mu.Lock()
	p.duration = d
	p.start = 0
	p.end = d
	if p.current > d {
		p.current = d
	}
	ev := p.event(EventDurationChange)
	p.mu.Unlock()

	p.emit(ev)
}

// SetSelection narrows playback to [start, end].
func (p *Player) SetSelection(start, end float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if start < 0 || end <= start || end > p.duration {
		return ErrInvalidSelection
	}
	p.start = start
	p.end = end
	return nil
}

// Play starts playback from the selection start.
func (p *Player) Play() {
	p.mu.Lock()
	p.current = p.start
	p.playing = true
	ev := p.event(EventPlay)
	p.mu.Unlock()

	p.emit(ev)
}

// Pause stops playback at the current position.
func (p *Player) Pause() {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.playing = false
	ev := p.event(EventPause)
	p.mu.Unlock()

	p.emit(ev)
}

// Toggle pauses when playing and plays otherwise.
func (p *Player) Toggle() {
	if p.Playing() {
		p.Pause()
		return
	}
	p.Play()
}

// Tick reports the media position t. Listeners first see the time update,
// then, if playback reached the selection end, a stop.
func (p *Player) Tick(t float64) {
	p.mu.Lock()
	if p.seeking {
		p.mu.Unlock()
		return
	}
	p.current = t
	events := []Event{p.event(EventTimeUpdate)}

	if p.playing && t >= p.end {
		p.playing = false
		events = append(events, p.event(EventStopped))
	}
	p.mu.Unlock()

	p.emit(events...)
}

// Ended reports that the media reached its natural end.
func (p *Player) Ended() {
	p.mu.Lock()
	p.playing = false
	ev := p.event(EventEnded)
	p.mu.Unlock()

	p.emit(ev)
}

// BeginSeek suppresses time updates until Seek is called.
func (p *Player) BeginSeek() {
	p.mu.Lock()
	p.seeking = true
	p.mu.Unlock()
}

// Seek moves to ratio of the duration, clamped to [0, 1], and returns the new
// position. Without a known duration it is a no-op.
func (p *Player) Seek(ratio float64) float64 {
	p.mu.Lock()
	p.seeking = false
	if p.duration <= 0 {
		cur := p.current
		p.mu.Unlock()
		return cur
	}

	if math.IsNaN(ratio) {
		ratio = 0
	}
	ratio = math.Max(0, math.Min(1, ratio))
	p.current = ratio * p.duration
	ev := p.event(EventTimeUpdate)
	p.mu.Unlock()

	p.emit(ev)
	return ev.Time
}

func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *Player) Selection() (float64, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start, p.end
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Progress is the position as a fraction of the duration, 0 when unknown.
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.duration <= 0 {
		return 0
	}
	return p.current / p.duration
}

// event must be called with mu held.
func (p *Player) event(t EventType) Event {
	return Event{Type: t, Time: p.current, Playing: p.playing}
}

// emit delivers events outside the lock so listeners may call back into p.
func (p *Player) emit(events ...Event) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ls := make([]Listener, len(ids))
	for i, id := range ids {
		ls[i] = p.listeners[id]
	}
	p.mu.Unlock()

	for _, ev := range events {
		for _, l := range ls {
			l(ev)
		}
	}
}
