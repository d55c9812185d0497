package saga

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestCompensateRunsInReverse(t *testing.T) {
	var order []string
	s := New("test", zerolog.Nop())
	for _, name := range []string{"account", "student", "bed"} {
		name := name
		s.Completed(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := s.Compensate(context.Background()); err != nil {
		t.Fatalf("Compensate() error = %v", err)
	}
	want := []string{"bed", "student", "account"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if len(s.Steps()) != 0 {
		t.Errorf("Steps() after compensate = %v, want empty", s.Steps())
	}
}

func TestCompensateContinuesPastFailures(t *testing.T) {
	boom := errors.New("boom")
	ran := 0
	s := New("test", zerolog.Nop())
	s.Completed("first", func(ctx context.Context) error { ran++; return nil })
	s.Completed("second", func(ctx context.Context) error { ran++; return boom })

	err := s.Compensate(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Compensate() error = %v, want %v", err, boom)
	}
	if ran != 2 {
		t.Errorf("ran %d compensations, want 2", ran)
	}
}

func TestCompensateIgnoresCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New("test", zerolog.Nop())
	s.Completed("step", func(ctx context.Context) error { return ctx.Err() })

	if err := s.Compensate(ctx); err != nil {
		t.Errorf("Compensate() error = %v, want nil", err)
	}
}
