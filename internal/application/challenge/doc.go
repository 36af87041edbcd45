// Package challenge implements the challenge catalog and its request handler.
//
// The catalog is generated once at startup and is read-only afterwards.
// Every request sleeps for a simulated downstream latency, and ids above a
// configurable threshold sleep much longer before returning nothing. Both
// delays are deliberate fault injection for exercising pool saturation and
// the observability around it.
package challenge
