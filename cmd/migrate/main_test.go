package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockMigrator struct {
	mock.Mock
}

func (m *mockMigrator) Up() error   { return m.Called().Error(0) }
func (m *mockMigrator) Down() error { return m.Called().Error(0) }

func (m *mockMigrator) Steps(n int) error { return m.Called(n).Error(0) }

func (m *mockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *mockMigrator) Force(version int) error { return m.Called(version).Error(0) }

func TestRun(t *testing.T) {
	log := zap.NewNop()

	t.Run("up and down", func(t *testing.T) {
		m := new(mockMigrator)
		m.On("Up").Return(nil).Once()
		m.On("Down").Return(errors.New("dirty")).Once()

		require.NoError(t, run(m, "up", nil, log))
		assert.EqualError(t, run(m, "down", nil, log), "dirty")
		m.AssertExpectations(t)
	})

	t.Run("step parses a signed count", func(t *testing.T) {
		m := new(mockMigrator)
		m.On("Steps", -2).Return(nil).Once()

		require.NoError(t, run(m, "step", []string{"-2"}, log))
		m.AssertExpectations(t)
	})

	t.Run("step without count", func(t *testing.T) {
		m := new(mockMigrator)
		err := run(m, "step", nil, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "step count required")
		m.AssertNotCalled(t, "Steps", mock.Anything)
	})

	t.Run("force rejects non numeric version", func(t *testing.T) {
		m := new(mockMigrator)
		err := run(m, "force", []string{"latest"}, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid version "latest"`)
	})

	t.Run("force", func(t *testing.T) {
		m := new(mockMigrator)
		m.On("Force", 1).Return(nil).Once()

		require.NoError(t, run(m, "force", []string{"1"}, log))
		m.AssertExpectations(t)
	})

	t.Run("version", func(t *testing.T) {
		m := new(mockMigrator)
		m.On("Version").Return(uint(1), false, nil).Once()

		require.NoError(t, run(m, "version", nil, log))
		m.AssertExpectations(t)
	})

	t.Run("unknown command", func(t *testing.T) {
		err := run(new(mockMigrator), "create", nil, log)
		assert.ErrorIs(t, err, errUsage)
	})
}
