package cursor

import (
	"errors"
	"testing"
	"time"
)

func TestSamplerAcquire(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	sampler := NewSampler(SourceFunc(func() (Point, error) {
		return Point{X: 640, Y: 480}, nil
	}), clock)
	sampler.Start()

	now = base.Add(250 * time.Millisecond)
	s, err := sampler.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if s.X != 640 || s.Y != 480 {
		t.Errorf("Expected (640, 480), got (%d, %d)", s.X, s.Y)
	}
	if s.Elapsed != 250*time.Millisecond {
		t.Errorf("Expected elapsed 250ms, got %v", s.Elapsed)
	}

	ch := s.Channels()
	if len(ch) != 2 || ch[0] != 640 || ch[1] != 480 {
		t.Errorf("Expected channels [640 480], got %v", ch)
	}
}

func TestSamplerAcquireWrapsErrors(t *testing.T) {
	sampler := NewSampler(SourceFunc(func() (Point, error) {
		return Point{}, ErrNoDisplay
	}), nil)

	_, err := sampler.Acquire()
	if !errors.Is(err, ErrAcquisition) {
		t.Errorf("Expected ErrAcquisition, got %v", err)
	}
	if !errors.Is(err, ErrNoDisplay) {
		t.Errorf("Expected cause ErrNoDisplay to be kept, got %v", err)
	}
}

func TestMockSourceStaysOnScreen(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	src := NewMockSource(func() time.Time { return now })

	p, _ := src.Position()
	if p.X != 960 || p.Y != 540 {
		t.Errorf("Expected mock to start at screen centre, got %+v", p)
	}

	for i := 0; i < 200; i++ {
		now = base.Add(time.Duration(i) * 37 * time.Millisecond)
		p, err := src.Position()
		if err != nil {
			t.Fatalf("Position failed: %v", err)
		}
		if p.X < 0 || p.X > 1920 || p.Y < 0 || p.Y > 1080 {
			t.Fatalf("Mock position off screen: %+v", p)
		}
	}
}

func TestNewSourceUnknownKind(t *testing.T) {
	if _, err := NewSource("trackball"); err == nil {
		t.Errorf("Expected error for unknown source kind")
	}
	if _, err := NewSource(KindMock); err != nil {
		t.Errorf("Expected mock source, got %v", err)
	}
}
