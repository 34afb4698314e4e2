package app

import (
	"time"

	"payment-record-service/internal/core/ports"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() ports.Clock { return systemClock{} }
