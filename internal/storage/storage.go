package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultUploadExpiry is used when a caller does not set an expiry.
const DefaultUploadExpiry = 15 * time.Minute

var (
	// ErrDisabled indicates evidence uploads are not configured.
	ErrDisabled = errors.New("evidence storage disabled")
	// ErrUnsupportedContentType indicates the upload is not an accepted image type.
	ErrUnsupportedContentType = errors.New("unsupported content type")
	// ErrInvalidKind indicates an unknown evidence kind.
	ErrInvalidKind = errors.New("invalid evidence kind")
	// ErrInvalidRef indicates a reference outside the caller's tenant.
	ErrInvalidRef = errors.New("invalid evidence reference")
)

// Kind groups evidence objects by what they document.
type Kind string

const (
	KindOdometer   Kind = "odometer"
	KindCheckpoint Kind = "checkpoint"
	KindIncident   Kind = "incident"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOdometer, KindCheckpoint, KindIncident:
		return true
	}
	return false
}

// UploadTicket lets a client upload one evidence photo directly to the
// object store. Ref is the stable reference stored on rounds, visits and incidents.
type UploadTicket struct {
	Ref         string    `json:"ref"`
	UploadURL   string    `json:"upload_url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// FileStorage issues upload and download URLs for evidence photos.
type FileStorage interface {
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
}

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ObjectKey builds the key for a new evidence object of a tenant.
func ObjectKey(tenantID string, kind Kind, contentType string) (string, error) {
	if !kind.Valid() {
		return "", ErrInvalidKind
	}
	ext, ok := extensions[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedContentType
	}
	return fmt.Sprintf("%s%s.%s", KeyPrefix(tenantID, kind), uuid.NewString(), ext), nil
}

// KeyPrefix returns the key prefix of a tenant's evidence, narrowed to
// kind when kind is set.
func KeyPrefix(tenantID string, kind Kind) string {
	if kind == "" {
		return "evidence/" + tenantID + "/"
	}
	return "evidence/" + tenantID + "/" + string(kind) + "/"
}

// OwnsRef reports whether ref is an evidence key of tenantID and kind.
func OwnsRef(tenantID string, kind Kind, ref string) bool {
	if tenantID == "" || strings.Contains(ref, "..") {
		return false
	}
	prefix := KeyPrefix(tenantID, kind)
	return strings.HasPrefix(ref, prefix) && len(ref) > len(prefix)
}

// Evidence issues upload tickets scoped to a tenant.
type Evidence struct {
	store   FileStorage
	expires time.Duration
	now     func() time.Time
}

// NewEvidence wraps store. A nil store yields ErrDisabled from every call.
func NewEvidence(store FileStorage, expires time.Duration) *Evidence {
	if expires <= 0 {
		expires = DefaultUploadExpiry
	}
	return &Evidence{store: store, expires: expires, now: time.Now}
}

// NewUpload returns a ticket for one photo upload.
func (e *Evidence) NewUpload(ctx context.Context, tenantID string, kind Kind, contentType string) (*UploadTicket, error) {
	if e == nil || e.store == nil {
		return nil, ErrDisabled
	}
	key, err := ObjectKey(tenantID, kind, contentType)
	if err != nil {
		return nil, err
	}
	url, err := e.store.PresignUpload(ctx, key, contentType, e.expires)
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}
	return &UploadTicket{
		Ref:         key,
		UploadURL:   url,
		ContentType: contentType,
		ExpiresAt:   e.now().Add(e.expires),
	}, nil
}

// DownloadURL returns a short-lived URL for a stored reference. References
// of other tenants are rejected.
func (e *Evidence) DownloadURL(ctx context.Context, tenantID, ref string) (string, error) {
	if e == nil || e.store == nil {
		return "", ErrDisabled
	}
	if !OwnsRef(tenantID, "", ref) {
		return "", ErrInvalidRef
	}
	url, err := e.store.PresignDownload(ctx, ref, e.expires)
	if err != nil {
		return "", fmt.Errorf("presigning download: %w", err)
	}
	return url, nil
}
