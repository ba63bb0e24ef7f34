package server

import "time"

const (
	writeWait = 10 * time.Second
	tickRate  = 60 // simulation ticks per second

	defaultRosterSize = 6
)
