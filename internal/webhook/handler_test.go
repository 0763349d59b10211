package webhook

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lojasmm/discordui/internal/discord"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	seen []*discord.Interaction
}

func (d *recordingDispatcher) HandleInteraction(_ context.Context, raw *discord.Interaction) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, raw)
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, ed25519.PrivateKey, *Handler, *recordingDispatcher) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	d := &recordingDispatcher{}
	h := NewHandler(pub, d, nil)
	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, priv, h, d
}

func signedRequest(t *testing.T, url string, key ed25519.PrivateKey, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/interactions", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	ts := "1700000000"
	sig := ed25519.Sign(key, []byte(ts+body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", ts)
	return req
}

func TestPing(t *testing.T) {
	srv, key, _, d := newTestServer(t)

	resp, err := http.DefaultClient.Do(signedRequest(t, srv.URL, key, `{"id":"1","type":1,"token":"t"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(body)); got != `{"type":1}` {
		t.Errorf("body = %q", got)
	}
	if len(d.seen) != 0 {
		t.Error("pings should not reach the dispatcher")
	}
}

func TestDispatchesComponent(t *testing.T) {
	srv, key, h, d := newTestServer(t)

	body := `{"id":"2","type":3,"token":"t","data":{"custom_id":"b","component_type":2}}`
	resp, err := http.DefaultClient.Do(signedRequest(t, srv.URL, key, body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	h.Wait()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.seen) != 1 || d.seen[0].ID != "2" {
		t.Errorf("dispatched = %+v", d.seen)
	}
}

func TestRejectsBadSignature(t *testing.T) {
	srv, _, _, d := newTestServer(t)
	_, other, _ := ed25519.GenerateKey(rand.Reader)

	resp, err := http.DefaultClient.Do(signedRequest(t, srv.URL, other, `{"id":"3","type":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", resp.StatusCode)
	}

	req := signedRequest(t, srv.URL, other, `{}`)
	req.Header.Del("X-Signature-Ed25519")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing signature: status = %d", resp.StatusCode)
	}
	if len(d.seen) != 0 {
		t.Error("unverified requests must not be dispatched")
	}
}

func TestParsePublicKey(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	got, err := ParsePublicKey(hex.EncodeToString(pub))
	if err != nil || !got.Equal(pub) {
		t.Errorf("round trip failed: %v", err)
	}
	if _, err := ParsePublicKey("abcd"); err == nil {
		t.Error("short key should be rejected")
	}
	if _, err := ParsePublicKey("zz"); err == nil {
		t.Error("non-hex key should be rejected")
	}
}
