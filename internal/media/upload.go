// Package media stores camera snapshots taken at the result screen in a COS
// bucket and hands back their public URL.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	cos "github.com/tencentyun/cos-go-sdk-v5"
)

const MaxSnapshotBytes = 5 << 20

var (
	ErrUploadUnavailable = errors.New("写真のアップロードは現在利用できません")
	ErrEmptySnapshot     = errors.New("写真データが空です")
	ErrSnapshotTooLarge  = errors.New("写真のサイズが大きすぎます")
	ErrNotAnImage        = errors.New("画像ファイルを選んでください")
)

var fileNamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

type Config struct {
	SecretID     string
	SecretKey    string
	Region       string
	Bucket       string
	PublicDomain string
	// Endpoint overrides the bucket URL derived from Bucket and Region.
	Endpoint string
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.SecretID) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != "" &&
		strings.TrimSpace(c.PublicDomain) != ""
}

type Uploader struct {
	cfg    Config
	client *cos.Client
}

// NewUploader returns an uploader that reports ErrUploadUnavailable when
// credentials are missing.
func NewUploader(cfg Config) (*Uploader, error) {
	u := &Uploader{cfg: cfg}
	if !cfg.Enabled() {
		return u, nil
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		region := strings.TrimSpace(cfg.Region)
		if region == "" {
			region = "ap-hongkong"
		}
		endpoint = fmt.Sprintf("https://%s.cos.%s.myqcloud.com", strings.TrimSpace(cfg.Bucket), region)
	}
	bucketURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse cos bucket url: %w", err)
	}
	u.client = cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Timeout: 30 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  strings.TrimSpace(cfg.SecretID),
			SecretKey: strings.TrimSpace(cfg.SecretKey),
		},
	})
	return u, nil
}

func (u *Uploader) Enabled() bool {
	return u != nil && u.client != nil
}

func (u *Uploader) Upload(ctx context.Context, playerID string, data []byte, fileName string) (string, error) {
	if !u.Enabled() {
		return "", ErrUploadUnavailable
	}
	if len(data) == 0 {
		return "", ErrEmptySnapshot
	}
	if len(data) > MaxSnapshotBytes {
		return "", ErrSnapshotTooLarge
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrNotAnImage
	}

	key := objectKey(playerID, fileName)
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType},
	}
	if _, err := u.client.Object.Put(ctx, key, bytes.NewReader(data), opt); err != nil {
		return "", fmt.Errorf("put snapshot: %w", err)
	}
	return strings.TrimRight(strings.TrimSpace(u.cfg.PublicDomain), "/") + "/" + key, nil
}

func objectKey(playerID, fileName string) string {
	return fmt.Sprintf("snapshots/%s/%d_%s_%s",
		sanitizeFileName(playerID, "anonymous"),
		time.Now().Unix(),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		sanitizeFileName(fileName, "snapshot.jpg"),
	)
}

func sanitizeFileName(name, fallback string) string {
	base := strings.TrimSpace(filepath.Base(name))
	if base == "" || base == "." || base == "/" {
		return fallback
	}
	base = fileNamePattern.ReplaceAllString(base, "_")
	if base == "" {
		return fallback
	}
	return base
}
