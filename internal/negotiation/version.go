package negotiation

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// VersionError reports a client below the minimum supported version.
type VersionError struct {
	Code    string
	Message string
	Min     string
	Got     string
}

func (e *VersionError) Error() string {
	return e.Message
}

// CheckVersion rejects an app version older than min.
// An empty min or app always passes, as do versions that are not semver:
// web clients send no version and a malformed one is not the user's fault.
func CheckVersion(min, app string) error {
	mv := normalizeVersion(min)
	av := normalizeVersion(app)
	if mv == "" || av == "" || !semver.IsValid(mv) || !semver.IsValid(av) {
		return nil
	}
	if semver.Compare(av, mv) >= 0 {
		return nil
	}
	return &VersionError{
		Code:    ClientOutdated,
		Message: fmt.Sprintf("app version %s is older than the minimum supported %s", app, min),
		Min:     min,
		Got:     app,
	}
}

// normalizeVersion adds the "v" prefix semver expects.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
