package driver

// Capabilities documents where a driver departs from the ideal contract.
type Capabilities struct {
	// HonorsOverwrite is false when Upload ignores UploadOptions.Overwrite
	// and always replaces the destination.
	HonorsOverwrite bool

	// IdempotentCreateDir is true when a repeated CreateDir returns true.
	// Bucket-backed drivers fail the second call with (false, nil).
	IdempotentCreateDir bool

	// ExactExists is false when Exists approximates rather than asks.
	ExactExists bool
}

// CapabilityReporter is implemented by drivers that describe themselves.
type CapabilityReporter interface {
	Capabilities() Capabilities
}

// CapabilitiesOf returns d's capabilities, or the most conservative set when
// d does not report any.
func CapabilitiesOf(d Driver) Capabilities {
	if r, ok := d.(CapabilityReporter); ok {
		return r.Capabilities()
	}
	return Capabilities{}
}
