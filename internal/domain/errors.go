package domain

import "errors"

// Per-city failures are recorded on the Outcome and never abort a batch.
// Only ErrSerialization and ErrNoRoutes end a run.
var (
	ErrInputMissing  = errors.New("input missing")
	ErrNetworkFetch  = errors.New("network fetch failed")
	ErrNoPath        = errors.New("no path to safe zone")
	ErrSerialization = errors.New("route serialization failed")
	ErrNoRoutes      = errors.New("no city could be routed")
)
