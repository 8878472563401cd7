// Package pricing estimates trades from live venue state: AMM pool reserves,
// router simulations and order-book depth. Nothing here is cached; every call
// reads the chain.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRoute means the venue cannot fill the trade: empty reserves, a zero
	// simulation result or a pair the router does not know.
	ErrNoRoute = errors.New("no viable route")
	// ErrVenueData means the venue replied with something that does not decode.
	ErrVenueData = errors.New("malformed venue data")
)

// decode unmarshals a raw contract reply, mapping failures to ErrVenueData.
func decode(raw json.RawMessage, out any, what string) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: empty %s response", ErrVenueData, what)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrVenueData, what, err)
	}
	return nil
}

// routeMissing reports whether a contract query error means the pair is not
// tradable, as opposed to a transport failure.
func routeMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"not found", "does not exist", "no route", "no trade"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
