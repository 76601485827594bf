//go:build !linux

package platform

// StubPlatform is a no-op Platform for operating systems without a device tree.
type StubPlatform struct{}

// New creates a stub platform instance.
func New() Platform {
	return &StubPlatform{}
}

// Name returns the platform identifier.
func (p *StubPlatform) Name() string { return "stub" }

// BoardModel returns "" on platforms without a device tree.
func (p *StubPlatform) BoardModel() (string, error) {
	return "", nil
}
