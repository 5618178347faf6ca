package cocart

import (
	"errors"
	"fmt"

	"storefront-proxy/internal/model"
)

// StatusError is a non-2xx CoCart response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("cocart: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("cocart: status %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure reaching CoCart.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "cocart: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is a 401/403 whose body blames the credentials.
// Only such errors justify retrying the call as a guest.
func IsAuthError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return model.BlamesCredentials(se.Status, se.Code, se.Message)
}
