package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Check(t *testing.T) {
	t.Run("all up", func(t *testing.T) {
		r := NewRegistry()
		r.Register("postgres", func(ctx context.Context) error { return nil })
		r.Register("redis", func(ctx context.Context) error { return nil })

		report := r.Check(context.Background())

		assert.Equal(t, StatusUp, report.Status)
		assert.Equal(t, map[string]string{"postgres": StatusUp, "redis": StatusUp}, report.Checks)
		assert.Equal(t, []string{"postgres", "redis"}, r.Names())
	})

	t.Run("one down", func(t *testing.T) {
		r := NewRegistry()
		r.Register("postgres", func(ctx context.Context) error { return nil })
		r.Register("redis", func(ctx context.Context) error { return errors.New("connection refused") })

		report := r.Check(context.Background())

		assert.Equal(t, StatusDown, report.Status)
		assert.Equal(t, StatusUp, report.Checks["postgres"])
		assert.Equal(t, "down: connection refused", report.Checks["redis"])
	})

	t.Run("empty registry is up", func(t *testing.T) {
		report := NewRegistry().Check(context.Background())
		assert.Equal(t, StatusUp, report.Status)
		assert.Empty(t, report.Checks)
	})
}
