package timeouts

import "time"

const (
	Probe         = 300 * time.Millisecond
	PollInterval  = 500 * time.Millisecond
	SecondShort   = 2 * time.Second
	SecondDefault = 10 * time.Second
)
