package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLimit(t *testing.T) {
	payload := `{"audio_base64":"` + strings.Repeat("A", 2<<20) + `"}`

	var dst map[string]string
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	err := Decode(httptest.NewRecorder(), req, &dst)
	var tooLarge *http.MaxBytesError
	require.Error(t, err)
	assert.True(t, errors.As(err, &tooLarge))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	require.NoError(t, DecodeLimit(httptest.NewRecorder(), req, &dst, 4<<20))
	assert.Len(t, dst["audio_base64"], 2<<20)
}
