package fakeremote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) map[string]any {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestStatus_LoginAndExtensions(t *testing.T) {
	srv := New(WithExtensions(".mp3"))
	id, token := srv.AddUser("alice@example.com", "hunter2")
	h := srv.Handler()

	out := postJSON(t, h, StatusPath, map[string]any{
		"mode": "status", "email_address": "alice@example.com", "password": "hunter2", "supported_types": 1,
	})
	user := out["user"].(map[string]any)
	assert.Equal(t, id, fmt.Sprint(user["id"]))
	assert.Equal(t, token, user["token"])
	assert.Equal(t, []any{map[string]any{"extension": ".mp3"}}, out["supported"])

	bad := postJSON(t, h, StatusPath, map[string]any{
		"mode": "status", "email_address": "alice@example.com", "password": "nope",
	})
	assert.NotContains(t, bad, "user")
	assert.Equal(t, false, bad["result"])
}

func TestSync_ListAndUpload(t *testing.T) {
	srv := New()
	id, token := srv.AddUser("bob@example.com", "pw")
	srv.SeedKnown("bob@example.com", "aaa")
	srv.RejectWhen(func(p string) bool { return strings.HasSuffix(p, "bad.mp3") })
	h := srv.Handler()

	form := url.Values{"user_id": {id}, "token": {token}}
	req := httptest.NewRequest(http.MethodPost, SyncPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.JSONEq(t, `{"result":true,"md5":["aaa"]}`, w.Body.String())

	upload := func(path, content string) string {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("user_id", id))
		require.NoError(t, mw.WriteField("token", token))
		require.NoError(t, mw.WriteField("file_path", path))
		require.NoError(t, mw.WriteField("method", "test"))
		fw, err := mw.CreateFormFile("file", "x.mp3")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, SyncPath, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Body.String()
	}

	assert.JSONEq(t, `{"result":true,"message":"file uploaded"}`, upload("/music/good.mp3", "hello"))
	assert.JSONEq(t, `{"result":false,"message":"upload failed"}`, upload("/music/bad.mp3", "world"))

	uploads := srv.Uploads()
	require.Len(t, uploads, 2)
	assert.True(t, uploads[0].Accepted)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", uploads[0].Fingerprint)
	assert.False(t, uploads[1].Accepted)
	assert.Equal(t, []string{"5d41402abc4b2a76b9719d911017c592", "aaa"}, srv.Known("bob@example.com"))
}

func TestSync_InvalidToken(t *testing.T) {
	srv := New()
	srv.AddUser("carol@example.com", "pw")

	form := url.Values{"user_id": {"1"}, "token": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, SyncPath, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.JSONEq(t, `{"result":false,"message":"invalid token"}`, w.Body.String())
}
