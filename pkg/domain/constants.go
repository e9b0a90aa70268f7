package domain

import "time"

// Editor-wide design constants. Components take these as defaults and allow
// overrides through options.
const (
	// DebounceWindow is the delay after the last mutation before a node's
	// save is committed.
	DebounceWindow = 300 * time.Millisecond

	// DefaultAspect is the aspect ratio requested from image providers.
	DefaultAspect = "9:16"

	// ProviderPollInterval is the delay between status polls for
	// asynchronous image providers.
	ProviderPollInterval = 2 * time.Second

	// ProviderMaxWait bounds the total wait for one image generation.
	ProviderMaxWait = 60 * time.Second
)
