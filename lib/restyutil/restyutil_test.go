package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.messages == nil {
		o.messages = map[string]string{}
	}
	o.messages[id] = contents
}

func TestFormatHeaders(t *testing.T) {
	require.Equal(t, "", FormatHeaders(http.Header{}))
	require.Equal(t, "Accept: text/plain", FormatHeaders(http.Header{"Accept": {"text/plain"}}))
	require.Equal(t, "<NO BODY AVAILABLE>", FormatRequestBody(nil))
}

func TestInstrumentClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	output := &memoryOutput{}
	client := resty.New().SetBaseURL(server.URL)
	InstrumentClient(client, nil, output)

	_, err := client.R().SetBody(map[string]string{"name": "Mercado"}).Post("/points")
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.R().Get("/missing")
	if err != nil {
		t.Fatal(err)
	}

	require.Len(t, output.messages, 2)
	first := output.messages["0001"]
	require.True(t, strings.HasPrefix(first, "---- REQUEST ----"))
	require.Contains(t, first, "POST")
	require.Contains(t, first, `{"name":"Mercado"}`)
	require.Contains(t, first, `{"ok":true}`)
	require.Contains(t, output.messages["0002"], "404")
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps", "ibge")
	output, err := NewFilesystemOutput(dir)
	if err != nil {
		t.Fatal(err)
	}
	output.Write("0001", "hello")

	contents, err := os.ReadFile(filepath.Join(dir, "0001"))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "hello", string(contents))
}
