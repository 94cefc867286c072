package application

import "fmt"

// RemoteError is a transport failure or non-2xx response from the market
// source. The core never retries it and leaves previous values in place,
// so a transient failure does not blank an otherwise-valid preview.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("market: status %d: %s", e.Status, e.Message)
	}
	return "market: " + e.Message
}
