package ecoleta

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"ecoleta/internal/components/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB, handler http.HandlerFunc) (*Client, *telemetry.Recorder) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rec := &telemetry.Recorder{}
	return NewClient(ClientOptions{BaseUrl: server.URL + "/"}, rec), rec
}

func TestItems(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/items", r.URL.Path)
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`[
			{"id":1,"title":"Lâmpadas","image_url":"http://localhost:3333/uploads/lampadas.svg"},
			{"id":3,"title":"Papéis e Papelão","image_url":"http://localhost:3333/uploads/papeis-papelao.svg"}
		]`))
	})

	items, err := client.Items(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	expected := []Item{
		{ID: 1, Title: "Lâmpadas", ImageUrl: "http://localhost:3333/uploads/lampadas.svg"},
		{ID: 3, Title: "Papéis e Papelão", ImageUrl: "http://localhost:3333/uploads/papeis-papelao.svg"},
	}
	require.Empty(t, cmp.Diff(expected, items))
}

func TestMultipartFields(t *testing.T) {
	req := CreatePointRequest{
		Name:      "Mercado",
		Email:     "contato@mercado.com",
		Whatsapp:  "11999999999",
		Uf:        "SP",
		City:      "Campinas",
		Latitude:  -22.9056,
		Longitude: -47.0608,
		Items:     []int64{1, 3},
	}
	expected := map[string]string{
		"name":      "Mercado",
		"email":     "contato@mercado.com",
		"whatsapp":  "11999999999",
		"uf":        "SP",
		"city":      "Campinas",
		"latitude":  "-22.9056",
		"longitude": "-47.0608",
		"items":     "1,3",
	}
	require.Equal(t, expected, req.MultipartFields())

	require.Equal(t, "", CreatePointRequest{}.MultipartFields()["items"])
	require.Equal(t, "0", CreatePointRequest{}.MultipartFields()["latitude"])
}

func TestCreatePoint(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/points", r.URL.Path)

		err := r.ParseMultipartForm(1 << 20)
		if err != nil {
			t.Error(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		require.Equal(t, "Mercado", r.FormValue("name"))
		require.Equal(t, "SP", r.FormValue("uf"))
		require.Equal(t, "Campinas", r.FormValue("city"))
		require.Equal(t, "1,3", r.FormValue("items"))

		file, header, err := r.FormFile("image")
		if err != nil {
			t.Error(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		defer file.Close()
		contents, _ := io.ReadAll(file)
		require.Equal(t, "photo.png", header.Filename)
		require.Equal(t, "png-bytes", string(contents))

		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"name":"Mercado","uf":"SP","city":"Campinas","latitude":-22.9,"longitude":-47.06}`))
	})

	point, err := client.CreatePoint(context.Background(), CreatePointRequest{
		Name:  "Mercado",
		Uf:    "SP",
		City:  "Campinas",
		Items: []int64{1, 3},
		Image: &Image{Filename: "photo.png", Data: []byte("png-bytes")},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(7), point.ID)
	require.Equal(t, "Campinas", point.City)
}

func TestCreatePointWithoutImage(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(1 << 20)
		if err != nil {
			t.Error(err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _, err = r.FormFile("image")
		require.ErrorIs(t, err, http.ErrMissingFile)
		w.Write([]byte(`{"id":8}`))
	})

	point, err := client.CreatePoint(context.Background(), CreatePointRequest{Name: "Mercado", Items: []int64{2}})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(8), point.ID)
}

func TestCreatePointValidationError(t *testing.T) {
	client, rec := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{
			"statusCode":400,
			"error":"Bad Request",
			"message":"celebrate request validation failed",
			"validation":{"body":{"source":"body","keys":["email"],"message":"\"email\" must be a valid email"}}
		}`))
	})

	_, err := client.CreatePoint(context.Background(), CreatePointRequest{Email: "nope"})
	require.NotNil(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, http.StatusBadRequest, verr.Status)
	require.Equal(t, []string{"email"}, verr.Keys)
	require.Equal(t, `"email" must be a valid email`, verr.Message)

	require.Contains(t, rec.IDs("warning"), "ecoleta: "+report_client_create_point)
	require.NotContains(t, rec.IDs("broken"), "ecoleta: "+report_client_create_point)
}

func TestCreatePointServerError(t *testing.T) {
	client, rec := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	})

	_, err := client.CreatePoint(context.Background(), CreatePointRequest{})
	require.NotNil(t, err)

	var serr *ServerError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, http.StatusBadGateway, serr.Status)
	require.Equal(t, "upstream down", serr.Body)
	require.Contains(t, rec.IDs("broken"), "ecoleta: "+report_client_create_point)
}

func TestServerErrorBodyIsTruncated(t *testing.T) {
	body := strings.Repeat("a", maxErrorBodyLength-1) + "ção"
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(body))
	})

	_, err := client.Items(context.Background())
	var serr *ServerError
	require.True(t, errors.As(err, &serr))
	require.True(t, utf8.ValidString(serr.Body))
	require.Equal(t, strings.Repeat("a", maxErrorBodyLength-1), serr.Body)
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		input    string
		n        int
		expected string
	}{
		{input: "abc", n: 5, expected: "abc"},
		{input: "abc", n: 2, expected: "ab"},
		{input: "aç", n: 2, expected: "a"},
		{input: "aç", n: 3, expected: "aç"},
		{input: "çç", n: 1, expected: ""},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, truncate(test.input, test.n), test.input)
	}
}

func TestPoints(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/points", r.URL.Path)
		query := r.URL.Query()
		require.Equal(t, "SP", query.Get("uf"))
		require.Equal(t, "Campinas", query.Get("city"))
		require.Equal(t, "1,2", query.Get("items"))
		w.Write([]byte(`[{"id":1,"name":"Mercado","city":"Campinas","uf":"SP"}]`))
	})

	points, err := client.Points(context.Background(), PointFilter{Uf: "SP", City: "Campinas", Items: []int64{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, points, 1)
	require.Equal(t, "Mercado", points[0].Name)
}

func TestPointsOmitsEmptyFilter(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.URL.RawQuery)
		w.Write([]byte(`[]`))
	})

	points, err := client.Points(context.Background(), PointFilter{})
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, points, 0)
}

func TestPoint(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/points/7":
			w.Write([]byte(`{"point":{"id":7,"name":"Mercado"},"items":[{"title":"Lâmpadas"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	detail, err := client.Point(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "Mercado", detail.Point.Name)
	require.Equal(t, []PointItem{{Title: "Lâmpadas"}}, detail.Items)

	_, err = client.Point(context.Background(), 8)
	require.ErrorIs(t, err, ErrPointNotFound)
}

func TestResponseErrorPlainText(t *testing.T) {
	client, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("missing items"))
	})

	_, err := client.Items(context.Background())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "missing items", verr.Message)
	require.Empty(t, verr.Keys)
}
