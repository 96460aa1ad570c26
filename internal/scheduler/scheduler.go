// Package scheduler drives the local sensor reads and remote weather fetches
// from a single cooperative loop.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"cloudpico-station/internal/station"
)

const (
	SensorReadInterval = 2 * time.Second
	WebFetchInterval   = 600 * time.Second
)

// Cloud is the sync collaborator. Update is called on every iteration.
type Cloud interface {
	Update(s *station.State)
	Connected() bool
}

// LocalReader samples the local sensors into s.
type LocalReader interface {
	Read(ctx context.Context, s *station.State)
}

// WeatherFetcher refreshes s.WebData. A failed fetch leaves it unchanged.
type WeatherFetcher interface {
	Fetch(ctx context.Context, s *station.State)
}

// Clock is the time source for both intervals.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Phase is the web fetch state.
type Phase int

const (
	Disconnected Phase = iota
	ConnectedAwaitingFirstFetch
	ConnectedSteady
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case ConnectedAwaitingFirstFetch:
		return "connected_awaiting_first_fetch"
	case ConnectedSteady:
		return "connected_steady"
	default:
		return "unknown"
	}
}

// Scheduler owns the station state and both poll timers. It is not safe for
// concurrent use; Run and Tick belong to one goroutine.
type Scheduler struct {
	cloud   Cloud
	reader  LocalReader
	fetcher WeatherFetcher
	clock   Clock
	state   *station.State

	phase          Phase
	lastSensorRead time.Time
	lastWebFetch   time.Time
}

// New leaves the sensor timer unset, so the first Tick reads the local
// sensors.
func New(cloud Cloud, reader LocalReader, fetcher WeatherFetcher, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		cloud:   cloud,
		reader:  reader,
		fetcher: fetcher,
		clock:   clock,
		state:   &station.State{},
		phase:   Disconnected,
	}
}

// State returns the state the readers write into.
func (s *Scheduler) State() *station.State { return s.state }

func (s *Scheduler) Phase() Phase { return s.phase }

// Tick runs one loop iteration. Both intervals use a strict comparison.
func (s *Scheduler) Tick(ctx context.Context) {
	s.cloud.Update(s.state)

	if s.clock.Now().Sub(s.lastSensorRead) > SensorReadInterval {
		s.lastSensorRead = s.clock.Now()
		s.reader.Read(ctx, s.state)
	}

	if !s.cloud.Connected() {
		if s.phase != Disconnected {
			slog.Info("cloud disconnected, web fetch paused")
			s.phase = Disconnected
		}
		return
	}

	switch s.phase {
	case Disconnected:
		s.phase = ConnectedAwaitingFirstFetch
		fallthrough
	case ConnectedAwaitingFirstFetch:
		slog.Info("cloud connected, performing initial web fetch")
		s.fetcher.Fetch(ctx, s.state)
		s.lastWebFetch = s.clock.Now()
		s.phase = ConnectedSteady
	case ConnectedSteady:
		if s.clock.Now().Sub(s.lastWebFetch) > WebFetchInterval {
			s.lastWebFetch = s.clock.Now()
			s.fetcher.Fetch(ctx, s.state)
		}
	}
}

// Run calls Tick every interval until ctx is done. A Tick that overruns the
// interval delays the next one; iterations never overlap.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}
