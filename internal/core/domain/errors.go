package domain

import "errors"

// ErrPersistence marks a series-store load or commit failure. It is the only
// error kind that is fatal to a run: the run aborts without a partial commit
// and the prior durable snapshot stays the last-known-good state. Check with
// errors.Is.
var ErrPersistence = errors.New("persistence failure")

// ErrRunInProgress is returned when a run is requested while another one is
// still executing. Runs are strictly sequential.
var ErrRunInProgress = errors.New("a monitoring run is already in progress")
