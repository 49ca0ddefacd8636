//go:generate go run go.uber.org/mock/mockgen -source=upload_service.go -destination=../mocks/servicemocks/mock_upload_service.go -package=servicemocks
package services

import (
	"bytes"
	"chat-relay/domain/mimetypes"
	"chat-relay/errors"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Parameters never part of a hosted upload signature.
var unsignedParams = map[string]struct{}{
	"file":          {},
	"api_key":       {},
	"resource_type": {},
	"cloud_name":    {},
}

type IUploadService interface {
	SignParams(params map[string]string) (SignedParams, error)
	Store(ctx context.Context, r io.Reader) (string, error)
}

// SignedParams is what the upload widget needs to call the hosting service.
type SignedParams struct {
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
	APIKey    string `json:"apiKey"`
}

type UploadService struct {
	log           *slog.Logger
	apiKey        string
	apiSecret     string
	mediaDir      string
	publicBaseURL string
	maxBytes      int64
	now           func() time.Time
}

func NewUploadService(log *slog.Logger, apiKey, apiSecret, mediaDir, publicBaseURL string, maxBytes int64) *UploadService {
	return &UploadService{
		log:           log,
		apiKey:        apiKey,
		apiSecret:     apiSecret,
		mediaDir:      mediaDir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		maxBytes:      maxBytes,
		now:           time.Now,
	}
}

// SignParams signs upload parameters the way the hosting service expects:
// sorted "k=v" pairs joined with '&', followed by the secret, SHA-1 hex encoded.
// A timestamp is injected when the caller did not send one.
func (s *UploadService) SignParams(params map[string]string) (SignedParams, error) {
	if s.apiSecret == "" {
		return SignedParams{}, errors.ErrUploadDisabled
	}

	signed := make(map[string]string, len(params)+1)
	for k, v := range params {
		if _, skip := unsignedParams[k]; skip || v == "" {
			continue
		}
		signed[k] = v
	}
	if _, ok := signed["timestamp"]; !ok {
		signed["timestamp"] = strconv.FormatInt(s.now().Unix(), 10)
	}

	return SignedParams{
		Signature: Signature(signed, s.apiSecret),
		Timestamp: signed["timestamp"],
		APIKey:    s.apiKey,
	}, nil
}

// Signature computes the hosted upload signature of already filtered parameters.
func Signature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// Store keeps an uploaded image under the media directory and returns its public URL.
// The type is sniffed from the content, never trusted from the client.
func (s *UploadService) Store(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", errors.ErrUploadTooLarge
	}

	detected := mimetype.Detect(data)
	if _, ok := mimetypes.IsImage(detected.String()); !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrNotAnImage, detected.String())
	}

	if err = os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.New().String() + detected.Extension()
	if err = writeFile(filepath.Join(s.mediaDir, name), data); err != nil {
		return "", err
	}
	s.log.Info("Image stored", "name", name, "mime", detected.String(), "bytes", len(data))

	return s.publicBaseURL + "/media/" + url.PathEscape(name), nil
}

// writeFile writes through a temporary file so a reader never sees a partial image.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err = io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
