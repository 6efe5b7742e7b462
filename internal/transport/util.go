package transport

import (
	"net"
	"time"
)

func deadlineFromNow(d time.Duration) time.Time {
	return time.Now().Add(d)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
