package verdb

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// config collects the options Open applies before constructing a DB's
// internal engine, bus, and poll defaults.
type config struct {
	clock             clockwork.Clock
	maxPatches        int
	defaultPollWindow time.Duration
	verbose           bool
}

func defaultConfig() config {
	return config{
		clock:             clockwork.NewRealClock(),
		maxPatches:        0, // commit.New substitutes codec.NumPatchesToKeep
		defaultPollWindow: 0, // poll.Poll substitutes poll.DefaultReadBlockTime
	}
}

// Option configures a DB at construction time.
type Option func(*config)

// WithClock overrides the clock used to mint version majors and timestamps,
// and as the default timer source for Poll. Intended for tests; production
// callers should not need this.
func WithClock(clock clockwork.Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithMaxPatches overrides how many history entries each envelope retains.
func WithMaxPatches(n int) Option {
	return func(c *config) { c.maxPatches = n }
}

// WithDefaultPollWindow overrides how long Poll blocks when the caller does
// not supply its own timeout.
func WithDefaultPollWindow(d time.Duration) Option {
	return func(c *config) { c.defaultPollWindow = d }
}

// WithVerboseLogging has every write emit a notice and a debug-level value
// diff to the commit engine's internal logger (sio.Output, stderr by
// default). Intended for local debugging, not production use.
func WithVerboseLogging(verbose bool) Option {
	return func(c *config) { c.verbose = verbose }
}
