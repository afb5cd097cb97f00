// Package monitor schedules periodic probes of a set of targets, keeps a
// bounded history per target and derives an aggregated connection status.
package monitor

import "github.com/digineo/go-logwrap"

var (
	log = &logwrap.Instance{}

	// SetLogger allows updating the Logger. For details, see
	// "github.com/digineo/go-logwrap".Instance.SetLogger.
	SetLogger = log.SetLogger
)
