package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMissingCredentials = errors.New("server configuration error")

// Credentials are the provider secrets checkout needs before calling out.
type Credentials struct {
	PaymentSecretKey  string
	FulfillmentAPIKey string
}

func (c Credentials) Check() error {
	var missing []string
	if strings.TrimSpace(c.PaymentSecretKey) == "" {
		missing = append(missing, "payment secret key")
	}
	if strings.TrimSpace(c.FulfillmentAPIKey) == "" {
		missing = append(missing, "fulfillment api key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
