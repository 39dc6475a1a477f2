package params

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned for a binding kind outside the closed set.
var ErrUnknownKind = errors.New("params: unknown binding kind")

// BindingKind determines how a parameter maps onto fit latents.
type BindingKind int

const (
	// BindIndependent parameters are informational and never fit.
	BindIndependent BindingKind = iota
	// BindFixed parameters are held constant through the fit.
	BindFixed
	// BindFree parameters get one latent per channel.
	BindFree
	// BindShared parameters get a single latent reused by every channel.
	BindShared
	// BindWhiteFree behaves like BindShared but marks the parameter as
	// fit against the white (channel-averaged) light curve.
	BindWhiteFree
	// BindWhiteFixed behaves like BindFixed for the spectroscopic fit,
	// holding the value found in a prior white-light fit.
	BindWhiteFixed
)

var bindingKindNames = [...]string{
	BindIndependent: "independent",
	BindFixed:       "fixed",
	BindFree:        "free",
	BindShared:      "shared",
	BindWhiteFree:   "white_free",
	BindWhiteFixed:  "white_fixed",
}

// String returns the text form of the binding kind.
func (k BindingKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}

	return bindingKindNames[k]
}

func (k BindingKind) valid() bool {
	return k >= BindIndependent && k <= BindWhiteFixed
}

// Fitted reports whether the kind contributes at least one latent.
func (k BindingKind) Fitted() bool {
	return k == BindFree || k == BindShared || k == BindWhiteFree
}

// PerChannel reports whether the kind contributes one latent per channel.
func (k BindingKind) PerChannel() bool {
	return k == BindFree
}

// ParseBindingKind converts the text form back into a kind. Matching is
// case-insensitive and accepts the "white free" spelling variant.
func ParseBindingKind(s string) (BindingKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")

	for k, name := range bindingKindNames {
		if norm == name {
			return BindingKind(k), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
