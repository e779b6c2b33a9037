package audio_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-brew-house/brewy-backend-sub001/audio"
)

func TestHTTPPipelineClientSubmitFile(t *testing.T) {
	ctx := context.Background()

	request := audio.SubmitRequest{
		JobID:    "job-1",
		FileName: "interview.mp3",
		Content:  []byte("fake-audio-bytes"),
	}

	t.Run("posts a multipart upload with the api key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/audio", r.URL.Path)
			assert.Equal(t, "Bearer pipeline-key", r.Header.Get("Authorization"))

			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "job-1", r.FormValue("job_id"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "interview.mp3", header.Filename)

			json.NewEncoder(w).Encode(map[string]string{"id": "ext-42", "status": "accepted"})
		}))
		defer server.Close()

		client := audio.NewHTTPPipelineClient(server.URL, audio.WithAPIKey("pipeline-key"))

		resp, err := client.SubmitFile(ctx, request)
		require.NoError(t, err)
		assert.Equal(t, "ext-42", resp.ExternalID)
		assert.Equal(t, "accepted", resp.Status)
	})

	t.Run("non success status surfaces as a pipeline failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := audio.NewHTTPPipelineClient(server.URL)

		_, err := client.SubmitFile(ctx, request)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pipeline")
	})

	t.Run("unreachable pipeline surfaces as a pipeline failure", func(t *testing.T) {
		client := audio.NewHTTPPipelineClient("http://127.0.0.1:1")

		_, err := client.SubmitFile(ctx, request)
		assert.Error(t, err)
	})

	t.Run("garbage response body fails decoding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not-json"))
		}))
		defer server.Close()

		client := audio.NewHTTPPipelineClient(server.URL)

		_, err := client.SubmitFile(ctx, request)
		assert.Error(t, err)
	})
}
