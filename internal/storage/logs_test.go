package storage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogStoreSave(t *testing.T) {
	store := NewLogStore(t.TempDir())

	path, err := store.Save("nightly/windows", []byte("build output"))
	require.NoError(t, err)
	require.True(t, strings.Contains(path, "nightly-windows"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "build output", string(data))
}

func TestLogStoreCreatesBaseDir(t *testing.T) {
	store := NewLogStore(t.TempDir() + "/nested/logs")
	_, err := store.Save("all", nil)
	require.NoError(t, err)
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{in: "stable/linux", want: "stable-linux"},
		{in: "plain-name_1.2", want: "plain-name_1.2"},
		{in: "", want: "job"},
		{in: "a b;c", want: "a-b-c"},
	}
	for _, testCase := range testCases {
		require.Equal(t, testCase.want, sanitize(testCase.in))
	}
}
