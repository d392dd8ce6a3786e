package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fwerrors "fwpanel/internal/errors"
	"fwpanel/internal/logging"
	"fwpanel/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(rt roundTripFunc) *Client {
	c := NewClient("http://127.0.0.1:8000", "/start-capture-and-predict/", "/drop-packets/", time.Second, logging.Discard())
	c.httpClient = newTestClient(rt)
	return c
}

func TestStartCaptureSendsOperatorAndDecodes(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/start-capture-and-predict/", req.URL.Path)
		assert.NotEmpty(t, req.Header.Get("X-Request-ID"))

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"user":"alice"}`, string(body))

		return jsonResponse(http.StatusOK, `{
			"predictions": [0, 1],
			"packet_data": [
				{"Source IP": "10.0.0.1", "Destination IP": "10.0.0.2", "Protocol": 6, "Source Port": 1234, "Destination Port": 80, "Packet Length": 60},
				{"Source IP": "10.0.0.5", "Destination IP": "10.0.0.2", "Protocol": "UDP", "Source Port": "53", "Destination Port": "53", "Packet Length": "90"}
			]
		}`), nil
	})

	res, err := client.StartCapture(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Predictions)
	require.Len(t, res.Packets, 2)
	assert.Equal(t, models.Value("10.0.0.5"), res.Packets[1].SrcIP)
	assert.Equal(t, models.Value("60"), res.Packets[0].Length)
}

func TestStartCaptureOmitsEmptyOperator(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{}`, string(body))
		return jsonResponse(http.StatusOK, `{"predictions": [], "packet_data": []}`), nil
	})

	res, err := client.StartCapture(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Predictions)
	assert.Empty(t, res.Packets)
}

func TestStartCaptureServerError(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `{"detail":"capture failed"}`), nil
	})

	_, err := client.StartCapture(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, fwerrors.KindServer, fwerrors.GetKind(err))
	attrs := fwerrors.GetAttributes(err)
	assert.Equal(t, http.StatusInternalServerError, attrs["status"])
	assert.Equal(t, "start-capture", attrs["operation"])
}

func TestStartCaptureMalformedBody(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"predictions": "nope"`), nil
	})

	_, err := client.StartCapture(context.Background(), "")
	assert.Equal(t, fwerrors.KindServer, fwerrors.GetKind(err))
}

func TestStartCaptureMissingKeys(t *testing.T) {
	cases := map[string]struct {
		body    string
		missing []string
	}{
		"error body":       {`{"detail":"capture interface not found"}`, []string{"predictions", "packet_data"}},
		"no predictions":   {`{"packet_data": []}`, []string{"predictions"}},
		"null packet_data": {`{"predictions": [], "packet_data": null}`, []string{"packet_data"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			client := newClient(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, tc.body), nil
			})

			res, err := client.StartCapture(context.Background(), "")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, fwerrors.KindDataIntegrity, fwerrors.GetKind(err))
			assert.Equal(t, tc.missing, fwerrors.GetAttributes(err)["missing"])
		})
	}
}

func TestStartCaptureRejectsNonScalarField(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"predictions": [1], "packet_data": [{"Source IP": {"a": 1}}]}`), nil
	})

	_, err := client.StartCapture(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, fwerrors.KindServer, fwerrors.GetKind(err))
}

func TestStartCaptureTransportError(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := client.StartCapture(context.Background(), "")
	assert.Equal(t, fwerrors.KindTransport, fwerrors.GetKind(err))
}

func TestStartCaptureTimeout(t *testing.T) {
	client := newClient(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.StartCapture(ctx, "")
	assert.Equal(t, fwerrors.KindTimeout, fwerrors.GetKind(err))
	assert.True(t, fwerrors.Is(err, context.DeadlineExceeded))
}

func TestDropPacketsAgainstServer(t *testing.T) {
	var got dropRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/drop-packets/" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/api/", "/start-capture-and-predict/", "drop-packets/", time.Second, logging.Discard())
	require.NoError(t, client.DropPackets(context.Background(), "10.0.0.5"))
	assert.Equal(t, "10.0.0.5", got.IP)
}

func TestDropPacketsRejectsEmptyAddress(t *testing.T) {
	calls := 0
	client := newClient(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	err := client.DropPackets(context.Background(), "  ")
	assert.Equal(t, fwerrors.KindValidation, fwerrors.GetKind(err))
	assert.Zero(t, calls)
}

func TestResolvePathKeepsTrailingSlash(t *testing.T) {
	c := NewClient("http://host:8000/", "start-capture-and-predict/", "/drop-packets", time.Second, nil)
	assert.Equal(t, "http://host:8000/start-capture-and-predict/", c.captureURL())
	assert.Equal(t, "http://host:8000/drop-packets", c.dropURL())
}
