package app

import "time"

// Summary is printed when a role exits.
type Summary struct {
	Role       string
	Remote     string
	PosesSent  int
	Dropped    int
	Received   int
	Rejected   int
	Placements int
	Frames     int
	Duration   time.Duration
}
