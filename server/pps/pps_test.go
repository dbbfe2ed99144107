package pps

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dekarrin/pastprint/interp"
	"github.com/dekarrin/pastprint/rewrite"
	"github.com/dekarrin/pastprint/server/dao/inmem"
	"github.com/dekarrin/pastprint/server/serr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	return &Service{DB: inmem.NewDatastore()}
}

func Test_Service_Rewrite(t *testing.T) {
	testCases := []struct {
		name        string
		src         string
		filename    string
		expect      string
		expectErrIs error
		expectFile  string
	}{
		{
			name:   "statement",
			src:    "print 'a', 'b'\n",
			expect: "print('a', 'b')\n",
		},
		{
			name:        "syntax error uses default filename",
			src:         "print print\n",
			expectErrIs: serr.ErrSyntax,
			expectFile:  rewrite.DefaultFilename,
		},
		{
			name:        "syntax error uses given filename",
			src:         "x = (\n",
			filename:    "mod.py",
			expectErrIs: serr.ErrSyntax,
			expectFile:  "mod.py",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			svc := newService()

			actual, err := svc.Rewrite(context.Background(), tc.src, tc.filename)
			if tc.expectErrIs != nil {
				assert.ErrorIs(err, tc.expectErrIs)
				var se *rewrite.SyntaxError
				if assert.True(errors.As(err, &se)) {
					assert.Equal(tc.expectFile, se.Filename())
				}
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Service_Check(t *testing.T) {
	assert := assert.New(t)
	svc := newService()
	ctx := context.Background()

	assert.NoError(svc.Check(ctx, "print 1\n", ""))
	assert.ErrorIs(svc.Check(ctx, "print print\n", ""), serr.ErrSyntax)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(svc.Check(cancelled, "print 1\n", ""), context.Canceled)
}

func Test_Service_sessions(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := newService()

	sesh, err := svc.CreateSession(ctx, interp.Prompts{})
	require.NoError(t, err)
	assert.Equal(interp.DefaultPrompts, sesh.State.Prompts())

	steps := []struct {
		line          string
		prompt        string
		expect        string
		expectPending bool
	}{
		{line: "if x:", prompt: ">>> ", expect: "#\n", expectPending: true},
		{line: " print x,\n", prompt: "... ", expect: "if x:\n print(x, end=' ')\n"},
		{line: "\n", prompt: "... ", expect: "\n"},
		{line: "print", prompt: ">>> ", expect: "print()\n"},
	}
	for _, step := range steps {
		out, updated, err := svc.FeedLine(ctx, sesh.ID, step.line, step.prompt)
		require.NoError(t, err)
		assert.Equal(step.expect, out, "line %q", step.line)
		assert.Equal(step.expectPending, updated.State.Pending(), "line %q", step.line)
	}

	got, err := svc.GetSession(ctx, sesh.ID)
	require.NoError(t, err)
	assert.Equal(len(steps), got.Lines)

	all, err := svc.GetAllSessions(ctx)
	require.NoError(t, err)
	assert.Len(all, 1)

	_, _, err = svc.FeedLine(ctx, sesh.ID, "a\nb\n", ">>> ")
	assert.ErrorIs(err, serr.ErrBadArgument)

	_, err = svc.DeleteSession(ctx, sesh.ID)
	require.NoError(t, err)

	_, err = svc.GetSession(ctx, sesh.ID)
	assert.ErrorIs(err, serr.ErrNotFound)
	_, _, err = svc.FeedLine(ctx, sesh.ID, "print 1\n", ">>> ")
	assert.ErrorIs(err, serr.ErrNotFound)
	_, err = svc.DeleteSession(ctx, sesh.ID)
	assert.ErrorIs(err, serr.ErrNotFound)
	_, err = svc.GetSession(ctx, uuid.New())
	assert.ErrorIs(err, serr.ErrNotFound)
}

func Test_Service_CreateSession_samePrompts(t *testing.T) {
	assert := assert.New(t)
	svc := newService()

	_, err := svc.CreateSession(context.Background(), interp.Prompts{Primary: "> ", Continuation: "> "})
	assert.ErrorIs(err, serr.ErrBadArgument)
}

func Test_Service_FeedLine_prompt(t *testing.T) {
	testCases := []struct {
		name          string
		pending       bool
		line          string
		prompt        string
		expect        string
		expectErr     error
		expectPending bool
	}{
		{
			name:   "no prompt starts a statement",
			line:   "print 1",
			expect: "print(1)\n",
		},
		{
			name:    "no prompt continues a pending statement",
			pending: true,
			line:    " print x",
			expect:  "if x:\n print(x)\n",
		},
		{
			name:          "primary prompt while pending",
			pending:       true,
			line:          "print 1",
			prompt:        ">>> ",
			expectErr:     serr.ErrBadArgument,
			expectPending: true,
		},
		{
			name:   "unknown prompt passes through",
			line:   "print 1",
			prompt: "name? ",
			expect: "print 1\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			svc := newService()

			sesh, err := svc.CreateSession(ctx, interp.Prompts{})
			require.NoError(t, err)
			if tc.pending {
				_, _, err := svc.FeedLine(ctx, sesh.ID, "if x:", ">>> ")
				require.NoError(t, err)
			}

			out, _, err := svc.FeedLine(ctx, sesh.ID, tc.line, tc.prompt)
			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
			} else {
				assert.NoError(err)
				assert.Equal(tc.expect, out)
			}

			got, err := svc.GetSession(ctx, sesh.ID)
			require.NoError(t, err)
			assert.Equal(tc.expectPending, got.State.Pending())
		})
	}
}

func Test_Service_FeedLine_concurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	svc := newService()

	sesh, err := svc.CreateSession(ctx, interp.Prompts{})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.FeedLine(ctx, sesh.ID, "print 1\n", ">>> ")
			assert.NoError(err)
		}()
	}
	wg.Wait()

	got, err := svc.GetSession(ctx, sesh.ID)
	require.NoError(t, err)
	assert.Equal(n, got.Lines)
}
