package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartflow/chartflow/internal/dialect"
	"github.com/chartflow/chartflow/internal/locate"
	"github.com/chartflow/chartflow/internal/patient"
	"github.com/chartflow/chartflow/internal/pipeline"
	"github.com/chartflow/chartflow/internal/testutil"
)

// mockPipeline returns canned results for each server operation.
type mockPipeline struct {
	record     patient.Record
	detection  dialect.Detection
	validation pipeline.Validation
	locateRes  locate.Result
	runResult  pipeline.RunResult
	err        error
}

func (m *mockPipeline) ProcessImage(context.Context, image.Image) (patient.Record, dialect.Detection, pipeline.Validation, error) {
	return m.record, m.detection, m.validation, m.err
}

func (m *mockPipeline) LocateInImage(context.Context, image.Image, string) (locate.Result, error) {
	return m.locateRes, m.err
}

func (m *mockPipeline) RunWithCallback(_ context.Context, cb pipeline.StageCallback) pipeline.RunResult {
	if cb != nil {
		cb(pipeline.StateIdle, pipeline.StateCapturing)
		cb(pipeline.StateCapturing, pipeline.StateSucceeded)
	}
	return m.runResult
}

func newTestServer(t *testing.T, mock *mockPipeline) *Server {
	t.Helper()
	s, err := NewServer(DefaultConfig(), mock)
	require.NoError(t, err)
	return s
}

func screenshotUpload(t *testing.T, extraFields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	img := testutil.GenerateScreenshot(testutil.DefaultScreenshotConfig())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "screen.png")
	require.NoError(t, err)
	_, err = fw.Write(testutil.EncodePNG(t, img))
	require.NoError(t, err)
	for k, v := range extraFields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	s.healthHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestExtractHandler(t *testing.T) {
	mock := &mockPipeline{
		record: patient.Record{
			FirstName: "三", LastName: "张",
			BirthDate: "1970-01-15", Gender: patient.GenderMale,
			ExternalPatientID: "HIS123456",
		},
		detection:  dialect.Detection{ProfileID: dialect.GenericCN, Confidence: 0.67},
		validation: pipeline.Validation{Complete: true},
	}
	s := newTestServer(t, mock)

	body, contentType := screenshotUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.extractHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ExtractResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "HIS123456", resp.Record.ExternalPatientID)
	assert.Equal(t, dialect.GenericCN, resp.Dialect.ProfileID)
	assert.True(t, resp.Validation.Complete)
}

func TestExtractHandler_PipelineError(t *testing.T) {
	s := newTestServer(t, &mockPipeline{err: errors.New("vision unavailable")})

	body, contentType := screenshotUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.extractHandler(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "vision unavailable")
}

func TestExtractHandler_BadRequests(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	t.Run("wrong method", func(t *testing.T) {
		rr := httptest.NewRecorder()
		s.extractHandler(rr, httptest.NewRequest(http.MethodGet, "/extract", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})

	t.Run("no image field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()
		s.extractHandler(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("corrupt image", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "broken.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte("not a png"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/extract", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := httptest.NewRecorder()
		s.extractHandler(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLocateHandler(t *testing.T) {
	mock := &mockPipeline{
		locateRes: locate.Result{Found: true, Point: image.Point{X: 120, Y: 48}},
	}
	s := newTestServer(t, mock)

	body, contentType := screenshotUpload(t, map[string]string{"target": "the name cell"})
	req := httptest.NewRequest(http.MethodPost, "/locate", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.locateHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp LocateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.Result.Found)
	assert.Equal(t, 120, resp.Result.Point.X)
}

func TestLocateHandler_MissingTarget(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})

	body, contentType := screenshotUpload(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/locate", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.locateHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(DefaultConfig(), nil)
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.Port = -1
	_, err = NewServer(bad, &mockPipeline{})
	assert.Error(t, err)
}

func TestSetupRoutes(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	s := newTestServer(t, &mockPipeline{})
	handler := s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run on preflight")
	})

	req := httptest.NewRequest(http.MethodOptions, "/extract", nil)
	rr := httptest.NewRecorder()
	handler(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
