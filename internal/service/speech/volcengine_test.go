package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowalsky-lab/cowalsky/backend/internal/config"
	"github.com/cowalsky-lab/cowalsky/backend/internal/provider"
)

func volcConfig(baseURL string) config.SpeechConfig {
	return config.SpeechConfig{
		AppID:       "app-1",
		AccessToken: "tok-1",
		Cluster:     "volcano_tts",
		Voice:       "BV001_streaming",
		Speed:       1,
		Volume:      1,
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
	}
}

func TestVolcengineSynthesize(t *testing.T) {
	var got volcengineTTSRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tts", r.URL.Path)
		assert.Equal(t, "Bearer;tok-1", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"reqid":    got.Request.ReqID,
			"code":     3000,
			"message":  "Success",
			"sequence": -1,
			"data":     base64.StdEncoding.EncodeToString([]byte("ID3audio")),
		})
	}))
	defer srv.Close()

	synth, err := NewVolcengineSynthesizer(volcConfig(srv.URL + "/"))
	require.NoError(t, err)
	assert.Equal(t, "volcengine", synth.Name())

	audio, err := synth.Synthesize(context.Background(), provider.SpeechRequest{Text: "noot noot", Voice: "alloy"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio.Data)
	assert.Equal(t, "audio/mpeg", audio.MIMEType)

	assert.Equal(t, "app-1", got.App.AppID)
	assert.Equal(t, "volcano_tts", got.App.Cluster)
	assert.Equal(t, "BV001_streaming", got.Audio.VoiceType)
	assert.Equal(t, "noot noot", got.Request.Text)
	assert.Equal(t, "query", got.Request.Operation)
	assert.NotEmpty(t, got.Request.ReqID)
}

func TestVolcengineAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":3001,"message":"invalid voice"}`))
	}))
	defer srv.Close()

	synth, err := NewVolcengineSynthesizer(volcConfig(srv.URL))
	require.NoError(t, err)

	_, err = synth.Synthesize(context.Background(), provider.SpeechRequest{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3001")
}

func TestVolcengineMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	synth, err := NewVolcengineSynthesizer(volcConfig(srv.URL))
	require.NoError(t, err)

	_, err = synth.Synthesize(context.Background(), provider.SpeechRequest{Text: "hi"})
	assert.ErrorIs(t, err, provider.ErrMalformedResponse)
}

func TestVolcengineRequiresCredentials(t *testing.T) {
	_, err := NewVolcengineSynthesizer(config.SpeechConfig{})
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
}

func TestResolveVoices(t *testing.T) {
	assert.Equal(t, "onyx", resolveOpenAIVoice("Onyx", "alloy"))
	assert.Equal(t, "alloy", resolveOpenAIVoice("BV001_streaming", "alloy"))
	assert.Equal(t, "alloy", resolveOpenAIVoice("", "alloy"))

	assert.Equal(t, "BV700_streaming", resolveVolcengineVoice("BV700_streaming", "BV001_streaming"))
	assert.Equal(t, "en_male_glen_emo_v2_mars_bigtts", resolveVolcengineVoice("en_male_glen_emo_v2_mars_bigtts", "BV001_streaming"))
	assert.Equal(t, "BV001_streaming", resolveVolcengineVoice("alloy", "BV001_streaming"))
	assert.Equal(t, "BV001_streaming", resolveVolcengineVoice("", "BV001_streaming"))
}
