package model

import "time"

// Now is the clock used for order dates, payments and stock movements. Times are UTC to the second.
var Now = func() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
