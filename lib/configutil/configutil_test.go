package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl string            `json:"base_url"`
	Timeout int               `json:"timeout"`
	Headers map[string]string `json:"headers"`
}

func write(t testing.TB, path, contents string) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(path, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "dir/ecoleta.local.json5", LocalPath("dir/ecoleta.json5"))
	require.Equal(t, "ecoleta.local", LocalPath("ecoleta"))
}

func TestReadConfig(t *testing.T) {
	testCases := []struct {
		name     string
		base     string
		local    string
		expected testConfig
	}{
		{
			name: "base only",
			base: `{
				// comments and trailing commas are fine
				base_url: "http://localhost:3333",
				timeout: 10,
			}`,
			expected: testConfig{BaseUrl: "http://localhost:3333", Timeout: 10},
		},
		{
			name:     "local only",
			local:    `{base_url: "http://local"}`,
			expected: testConfig{BaseUrl: "http://local"},
		},
		{
			name:  "local overrides",
			base:  `{base_url: "http://localhost:3333", timeout: 10, headers: {a: "1"}}`,
			local: `{base_url: "http://staging", headers: {b: "2"}}`,
			expected: testConfig{
				BaseUrl: "http://staging",
				Timeout: 10,
				Headers: map[string]string{"a": "1", "b": "2"},
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			if test.base != "" {
				write(t, filepath.Join(dir, "ecoleta.json5"), test.base)
			}
			if test.local != "" {
				write(t, filepath.Join(dir, "ecoleta.local.json5"), test.local)
			}

			config, err := ReadConfig[testConfig](filepath.Join(dir, "ecoleta.json5"))
			if err != nil {
				t.Fatal(err)
			}
			diff := cmp.Diff(test.expected, config)
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "ecoleta.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecoleta.json5")
	write(t, path, `{base_url: `)
	_, err := ReadConfig[testConfig](path)
	require.NotNil(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "ecoleta.json5"), `{base_url: "http://root"}`)
	nested := filepath.Join(root, "a", "b", "c")
	err := os.MkdirAll(nested, 0755)
	if err != nil {
		t.Fatal(err)
	}

	config, path, err := ReadRecursively[testConfig](nested, "ecoleta.json5")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "http://root", config.BaseUrl)
	require.Equal(t, filepath.Join(root, "ecoleta.json5"), path)

	_, _, err = ReadRecursively[testConfig](nested, "missing.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}
