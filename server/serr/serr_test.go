package serr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Error(t *testing.T) {
	dbFailure := errors.New("disk on fire")

	testCases := []struct {
		name      string
		err       error
		expectMsg string
		expectIs  []error
		expectNot []error
	}{
		{
			name:      "message only",
			err:       New("bad"),
			expectMsg: "bad",
			expectNot: []error{ErrNotFound, ErrDB},
		},
		{
			name:      "message and cause",
			err:       New("session 1", ErrNotFound),
			expectMsg: "session 1: " + ErrNotFound.Error(),
			expectIs:  []error{ErrNotFound},
			expectNot: []error{ErrDB},
		},
		{
			name:      "cause only",
			err:       New("", ErrBadArgument),
			expectMsg: ErrBadArgument.Error(),
			expectIs:  []error{ErrBadArgument},
		},
		{
			name:      "wrapped DB error",
			err:       WrapDB("could not load", dbFailure),
			expectMsg: "could not load: disk on fire",
			expectIs:  []error{dbFailure, ErrDB},
			expectNot: []error{ErrNotFound},
		},
		{
			name:      "wrapped again with fmt",
			err:       fmt.Errorf("outer: %w", New("inner", ErrSyntax)),
			expectMsg: "outer: inner: " + ErrSyntax.Error(),
			expectIs:  []error{ErrSyntax},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.expectMsg, tc.err.Error())
			for _, target := range tc.expectIs {
				assert.ErrorIs(tc.err, target)
			}
			for _, target := range tc.expectNot {
				assert.NotErrorIs(tc.err, target)
			}
		})
	}
}
