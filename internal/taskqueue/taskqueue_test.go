package taskqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDuration_IncreasesWithAttempts(t *testing.T) {
	q := &Queue{backoffBase: 10 * time.Second}

	d0 := q.backoffDuration(0)
	d1 := q.backoffDuration(1)
	d2 := q.backoffDuration(2)

	assert.Greater(t, d1, d0)
	assert.Greater(t, d2, d1)
}

func TestBackoffDuration_CapsAtMaxInterval(t *testing.T) {
	q := &Queue{backoffBase: 10 * time.Second}

	d := q.backoffDuration(50)

	assert.LessOrEqual(t, d, 30*time.Minute)
}
