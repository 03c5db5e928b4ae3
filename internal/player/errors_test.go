package player

import (
	"errors"
	"fmt"
	"testing"

	crdb "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsAreDistinct(t *testing.T) {
	for i, a := range sentinelKinds {
		for j, b := range sentinelKinds {
			want := i == j
			assert.Equal(t, want, errors.Is(a.err, b.err), "std %q vs %q", a.err, b.err)
			assert.Equal(t, want, crdb.Is(a.err, b.err), "crdb %q vs %q", a.err, b.err)
		}
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("api down")
	tests := []struct {
		name string
		err  error
		kind Kind
		is   []error
		not  []error
	}{
		{"nil", nil, KindUnknown, nil, nil},
		{"plain", cause, KindUnknown, nil, []error{ErrNoResults}},
		{"sentinel", ErrOutOfBounds, KindUserInput, []error{ErrOutOfBounds}, []error{ErrInvalidArgs}},
		{"wrapped sentinel", fmt.Errorf("jump: %w", ErrQueueEmpty), KindPrecondition, []error{ErrQueueEmpty}, []error{ErrNotPlaying}},
		{"marked", markAs(cause, ErrNoResults), KindResource, []error{ErrNoResults, cause}, []error{ErrVoiceChannelRequired}},
		{"marked user input", markAs(cause, ErrUnknownSourceUser), KindUserInput, []error{ErrUnknownSourceUser, cause}, []error{ErrInvalidArgs}},
		{"stream", StreamError(cause), KindTransientStream, []error{cause}, []error{ErrNoResults}},
		{"stream wraps sentinel", StreamError(ErrNoResults), KindTransientStream, []error{ErrNoResults}, nil},
		{"fatal", fatalf("boom %d", 1), KindFatal, nil, []error{ErrSessionClosed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			for _, target := range tt.is {
				assert.True(t, errors.Is(tt.err, target), "std is %q", target)
				assert.True(t, crdb.Is(tt.err, target), "crdb is %q", target)
			}
			for _, target := range tt.not {
				assert.False(t, errors.Is(tt.err, target), "std not %q", target)
				assert.False(t, crdb.Is(tt.err, target), "crdb not %q", target)
			}
		})
	}
	assert.Equal(t, "api down", markAs(cause, ErrNoResults).Error())
}
