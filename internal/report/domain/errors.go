package domain

import "errors"

// ErrInvalidPeriod indicates an unusable explicit year/month pair.
var ErrInvalidPeriod = errors.New("report: invalid period")
