package lib

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEnsurer(session Session) *Ensurer {
	return NewEnsurer(session, zap.NewNop().Sugar())
}

func TestEnsureExistingCreatesNothing(t *testing.T) {
	session := newFakeSession("/x", "/x/y", "/x/y/z")
	ensurer := newTestEnsurer(session)
	require.NoError(t, ensurer.Ensure("/x/y/z"))
	assert.Empty(t, session.mkdirCalls())
}

func TestEnsureCreatesTopDown(t *testing.T) {
	session := newFakeSession()
	ensurer := newTestEnsurer(session)
	require.NoError(t, ensurer.Ensure("/x/y/z"))
	assert.Equal(t, []string{"/x", "/x/y", "/x/y/z"}, session.mkdirCalls())
	assert.True(t, session.dirs["/x/y/z"])
}

func TestEnsureRootIsNoop(t *testing.T) {
	session := newFakeSession()
	ensurer := newTestEnsurer(session)
	require.NoError(t, ensurer.Ensure("/"))
	require.NoError(t, ensurer.Ensure(""))
	assert.Empty(t, session.calls)
}

func TestEnsureIsMemoized(t *testing.T) {
	session := newFakeSession()
	ensurer := newTestEnsurer(session)
	require.NoError(t, ensurer.Ensure("/x/y"))
	calls := len(session.calls)
	require.NoError(t, ensurer.Ensure("/x/y"))
	assert.Equal(t, calls, len(session.calls))
	// a sibling only probes the new leaf
	require.NoError(t, ensurer.Ensure("/x/w"))
	assert.Equal(t, []string{"/x", "/x/y", "/x/w"}, session.mkdirCalls())
}

func TestEnsureKeepsGoingOnCreationFailure(t *testing.T) {
	session := newFakeSession()
	session.mkdirErrs["/x"] = errors.New("permission denied")
	ensurer := newTestEnsurer(session)
	require.NoError(t, ensurer.Ensure("/x/y"))
	// the failed ancestor does not prevent the attempt on the target
	assert.Equal(t, []string{"/x", "/x/y"}, session.mkdirCalls())
}

func TestEnsureStatErrorMeansAbsent(t *testing.T) {
	session := newFakeSession()
	session.statErrs["/x"] = errors.New("permission denied")
	ensurer := newTestEnsurer(session)
	require.NoError(t, ensurer.Ensure("/x"))
	assert.Equal(t, []string{"/x"}, session.mkdirCalls())
}

func TestEnsureConnectionLostIsFatal(t *testing.T) {
	session := newFakeSession()
	session.statErrs["/x"] = io.EOF
	ensurer := newTestEnsurer(session)
	assert.Error(t, ensurer.Ensure("/x/y"))
}
