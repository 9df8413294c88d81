package log

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockCloser struct {
	closeCalls int
	syncCalls  int
	err        error
}

func (m *mockCloser) Close() error {
	m.closeCalls++
	return m.err
}

func (m *mockCloser) Sync() error {
	m.syncCalls++
	return nil
}

func TestCloser_ClosesAllAndJoinsErrors(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	c1, c2, c3 := &mockCloser{err: errA}, &mockCloser{}, &mockCloser{err: errB}
	h, _, _, _, _ := newTestHook()

	c := &closer{closers: []io.Closer{c1, nil, c2, c3}, hook: h}
	err := c.Close()

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	for _, m := range []*mockCloser{c1, c2, c3} {
		assert.Equal(t, 1, m.closeCalls)
		assert.Equal(t, 1, m.syncCalls)
	}
	assert.True(t, h.closed, "hook이 먼저 닫혀야 합니다")
}

func TestCloser_Idempotent(t *testing.T) {
	m := &mockCloser{}
	c := &closer{closers: []io.Closer{m}}

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, 1, m.closeCalls)
}
