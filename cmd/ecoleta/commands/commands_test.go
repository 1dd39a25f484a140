package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ecoleta/internal/app"

	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mutex   sync.Mutex
	queries []string
	fields  map[string]string
}

func serve(t *testing.T) *fakeBackend {
	f := &fakeBackend{}

	ibge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/estados":
			w.Write([]byte(`[{"id":35,"sigla":"SP","nome":"São Paulo","regiao":{"id":3,"sigla":"SE","nome":"Sudeste"}}]`))
		case "/estados/SP/municipios":
			w.Write([]byte(`[{"id":3509502,"nome":"Campinas"},{"id":3550308,"nome":"São Paulo"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ibge.Close)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/items":
			w.Write([]byte(`[{"id":1,"title":"Lâmpadas","image_url":""},{"id":3,"title":"Papéis e Papelão","image_url":""}]`))
		case r.URL.Path == "/points" && r.Method == http.MethodGet:
			f.mutex.Lock()
			f.queries = append(f.queries, r.URL.RawQuery)
			f.mutex.Unlock()
			w.Write([]byte(`[{"id":7,"name":"Mercado","city":"São Paulo","uf":"SP","whatsapp":"11999999999"}]`))
		case r.URL.Path == "/points" && r.Method == http.MethodPost:
			err := r.ParseMultipartForm(1 << 20)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fields := map[string]string{}
			for key, values := range r.MultipartForm.Value {
				fields[key] = values[0]
			}
			f.mutex.Lock()
			f.fields = fields
			f.mutex.Unlock()
			w.Write([]byte(`{"id":8}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backend.Close)

	t.Setenv(app.EnvIbgeUrl, ibge.URL)
	t.Setenv(app.EnvBackendUrl, backend.URL)
	return f
}

func execute(t *testing.T, args ...string) string {
	return executeFor(t, time.Second*5, args...)
}

func executeFor(t *testing.T, timeout time.Duration, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return out.String()
}

func TestParseIds(t *testing.T) {
	ids, err := parseIds(" 1, 3,,7 ")
	require.Nil(t, err)
	require.Equal(t, []int64{1, 3, 7}, ids)

	ids, err = parseIds("")
	require.Nil(t, err)
	require.Empty(t, ids)

	_, err = parseIds("1,a")
	require.NotNil(t, err)
}

func TestStates(t *testing.T) {
	serve(t)
	out := execute(t, "states")
	require.Contains(t, out, "SP")
	require.Contains(t, out, "Sudeste")
}

func TestPointsResolvesCity(t *testing.T) {
	backend := serve(t)
	out := execute(t, "points", "--uf", "sp", "--city", "sao paulo", "--items", "1,3")
	require.Contains(t, out, "Mercado")

	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	require.Len(t, backend.queries, 1)
	require.Contains(t, backend.queries[0], "city=S%C3%A3o+Paulo")
	require.Contains(t, backend.queries[0], "uf=SP")
	require.Contains(t, backend.queries[0], "items=1%2C3")
}

func TestPointsWatch(t *testing.T) {
	backend := serve(t)
	out := executeFor(t, time.Millisecond*500, "points", "--watch", "@every 1h")
	require.Contains(t, out, "new points at")
	require.Contains(t, out, "Mercado")

	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	require.Len(t, backend.queries, 1)
}

func TestRegisterFromFlags(t *testing.T) {
	backend := serve(t)
	out := execute(t, "register",
		"--name", "Mercado",
		"--email", "contato@mercado.com",
		"--whatsapp", "11999999999",
		"--uf", "SP",
		"--city", "campinas",
		"--lat", "-22.9056",
		"--lng", "-47.0608",
		"--item", "3",
		"--item", "1",
	)
	require.Contains(t, out, "registered collection point #8")

	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	require.Equal(t, "Campinas", backend.fields["city"])
	require.Equal(t, "SP", backend.fields["uf"])
	require.Equal(t, "1,3", backend.fields["items"])
}
