package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maktabahq/maktaba/internal/model"
)

const remoteTimeout = 10 * time.Second

// Remote talks to an Unkey-compatible key service over HTTP. Requests are
// single attempts with a fixed client timeout; the caller decides what a
// failure means.
type Remote struct {
	baseURL string
	rootKey string
	apiID   string
	client  *http.Client
}

// NewRemote creates a Remote credential store. baseURL is the service root
// (e.g. https://api.unkey.dev), rootKey authenticates management calls, and
// apiID names the key namespace.
func NewRemote(baseURL, rootKey, apiID string) *Remote {
	return &Remote{
		baseURL: baseURL,
		rootKey: rootKey,
		apiID:   apiID,
		client:  &http.Client{Timeout: remoteTimeout},
	}
}

type keyMeta struct {
	AppID     string          `json:"appId"`
	Libraries []model.Library `json:"libraries"`
}

type createKeyRequest struct {
	APIID   string  `json:"apiId"`
	Prefix  string  `json:"prefix"`
	Name    string  `json:"name,omitempty"`
	Meta    keyMeta `json:"meta"`
	Expires *int64  `json:"expires,omitempty"` // unix millis
}

type createKeyResponse struct {
	KeyID string `json:"keyId"`
	Key   string `json:"key"`
}

type verifyKeyRequest struct {
	APIID string `json:"apiId"`
	Key   string `json:"key"`
}

type verifyKeyResponse struct {
	Valid bool     `json:"valid"`
	KeyID string   `json:"keyId"`
	Meta  *keyMeta `json:"meta"`
}

type deleteKeyRequest struct {
	KeyID string `json:"keyId"`
}

// Issue mints a new key. The library set is embedded in the key's meta and
// becomes the immutable entitlement snapshot.
func (r *Remote) Issue(ctx context.Context, appID string, libraries []model.Library, name string, expiresAt *time.Time) (*Credential, error) {
	req := createKeyRequest{
		APIID:  r.apiID,
		Prefix: "mk",
		Name:   name,
		Meta:   keyMeta{AppID: appID, Libraries: libraries},
	}
	if expiresAt != nil {
		ms := expiresAt.UnixMilli()
		req.Expires = &ms
	}

	var resp createKeyResponse
	if err := r.post(ctx, "/v1/keys.createKey", true, req, &resp); err != nil {
		return nil, fmt.Errorf("create key: %w", err)
	}
	if resp.KeyID == "" || resp.Key == "" {
		return nil, fmt.Errorf("create key: malformed response")
	}
	return &Credential{KeyID: resp.KeyID, Secret: resp.Key}, nil
}

// Verify checks a secret against the remote service. A non-2xx response is
// treated as "not valid" rather than an infrastructure failure, matching
// the service's behavior for unknown keys.
func (r *Remote) Verify(ctx context.Context, secret string) (*Verification, error) {
	var resp verifyKeyResponse
	err := r.post(ctx, "/v1/keys.verifyKey", false, verifyKeyRequest{APIID: r.apiID, Key: secret}, &resp)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return &Verification{Valid: false}, nil
		}
		return nil, fmt.Errorf("verify key: %w", err)
	}
	if !resp.Valid {
		return &Verification{Valid: false}, nil
	}

	v := &Verification{Valid: true, KeyID: resp.KeyID}
	if resp.Meta != nil {
		v.AppID = resp.Meta.AppID
		v.Libraries = resp.Meta.Libraries
	}
	return v, nil
}

// Invalidate permanently deletes a key on the remote service.
func (r *Remote) Invalidate(ctx context.Context, keyID string) error {
	if err := r.post(ctx, "/v1/keys.deleteKey", true, deleteKeyRequest{KeyID: keyID}, nil); err != nil {
		return fmt.Errorf("delete key: %w", err)
	}
	return nil
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

func (r *Remote) post(ctx context.Context, path string, authed bool, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+r.rootKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
