package cursor

import "fmt"

// Source kinds accepted by NewSource.
const (
	KindSystem = "system"
	KindMock   = "mock"
)

// NewSource builds the acquisition source named by kind.
func NewSource(kind string) (Source, error) {
	switch kind {
	case KindSystem:
		return NewSystemSource()
	case KindMock:
		return NewMockSource(nil), nil
	default:
		return nil, fmt.Errorf("unknown cursor source %q", kind)
	}
}
