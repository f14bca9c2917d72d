package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("QLITE_TEST_STR", "debug")
	t.Setenv("QLITE_TEST_BLANK", "  ")

	assert.Equal(t, "debug", GetEnvOrDefault("QLITE_TEST_STR", "info"))
	assert.Equal(t, "info", GetEnvOrDefault("QLITE_TEST_BLANK", "info"))
	assert.Equal(t, "info", GetEnvOrDefault("QLITE_TEST_UNSET", "info"))
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("QLITE_TEST_TRUE", "true")
	t.Setenv("QLITE_TEST_ZERO", "0")
	t.Setenv("QLITE_TEST_JUNK", "maybe")

	assert.True(t, GetEnvBoolOrDefault("QLITE_TEST_TRUE", false))
	assert.False(t, GetEnvBoolOrDefault("QLITE_TEST_ZERO", true))
	assert.True(t, GetEnvBoolOrDefault("QLITE_TEST_JUNK", true))
	assert.False(t, GetEnvBoolOrDefault("QLITE_TEST_UNSET", false))
}

func TestGetEnvIntOrDefault(t *testing.T) {
	t.Setenv("QLITE_TEST_INT", " 42 ")
	t.Setenv("QLITE_TEST_NAN", "lots")

	assert.Equal(t, 42, GetEnvIntOrDefault("QLITE_TEST_INT", 1))
	assert.Equal(t, 7, GetEnvIntOrDefault("QLITE_TEST_NAN", 7))
	assert.Equal(t, 5, GetEnvIntOrDefault("QLITE_TEST_UNSET", 5))
}
