package businessflow

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kairan-app/kairan/app/dto"
	"github.com/kairan-app/kairan/app/services"
	"github.com/kairan-app/kairan/config"
)

// MediaFlow rehosts inbound attachments: download from the provider's
// short-lived URL, hash, upload to durable object storage, and return a
// public link recipients can open.
type MediaFlow interface {
	Rehost(ctx context.Context, attachment dto.InboundAttachment) (*RehostedMedia, error)
	RehostAll(ctx context.Context, attachments []dto.InboundAttachment) ([]*RehostedMedia, []error)
}

// RehostedMedia describes one successfully rehosted attachment
type RehostedMedia struct {
	PublicURL    string
	ThumbnailURL string
	DisplayName  string
	ContentType  string
	SizeBytes    int64
	Hash         string
}

// MediaFlowImpl implements MediaFlow
type MediaFlowImpl struct {
	storage services.ObjectStorageService
	client  *http.Client
	cfg     *config.MediaConfig
}

var mediaExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"audio/mpeg":      ".mp3",
	"audio/ogg":       ".ogg",
	"application/pdf": ".pdf",
}

// NewMediaFlow creates a new media rehosting flow
func NewMediaFlow(storage services.ObjectStorageService, cfg *config.MediaConfig) MediaFlow {
	return &MediaFlowImpl{
		storage: storage,
		client:  &http.Client{Timeout: cfg.DownloadTimeout},
		cfg:     cfg,
	}
}

// Rehost processes a single attachment
func (f *MediaFlowImpl) Rehost(ctx context.Context, attachment dto.InboundAttachment) (*RehostedMedia, error) {
	data, contentType, err := f.download(ctx, attachment)
	if err != nil {
		return nil, NewBusinessError("MEDIA_DOWNLOAD_FAILED", "failed to download attachment", err)
	}
	if f.cfg.MaxSizeBytes > 0 && int64(len(data)) > f.cfg.MaxSizeBytes {
		return nil, NewBusinessErrorf("MEDIA_TOO_LARGE", "attachment exceeds %d bytes", ErrMediaTooLarge, f.cfg.MaxSizeBytes)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	displayName := cleanDisplayName(attachment.URL, contentType)
	key := hash + extensionFor(contentType)

	publicURL, err := f.storage.Put(ctx, key, data, contentType, map[string]string{
		"display-name": displayName,
		"sha256":       hash,
	})
	if err != nil {
		return nil, NewBusinessError("MEDIA_UPLOAD_FAILED", "failed to upload attachment", err)
	}

	rehosted := &RehostedMedia{
		PublicURL:   publicURL,
		DisplayName: displayName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Hash:        hash,
	}

	if strings.HasPrefix(contentType, "image/") {
		if thumbURL, err := f.uploadThumbnail(ctx, hash, data); err == nil {
			rehosted.ThumbnailURL = thumbURL
		}
	}
	return rehosted, nil
}

// RehostAll processes every attachment independently. Partial failure is
// expected; callers receive the successes plus one error per failed item.
func (f *MediaFlowImpl) RehostAll(ctx context.Context, attachments []dto.InboundAttachment) ([]*RehostedMedia, []error) {
	var rehosted []*RehostedMedia
	var errs []error
	for _, a := range attachments {
		m, err := f.Rehost(ctx, a)
		if err != nil {
			errs = append(errs, fmt.Errorf("attachment %s: %w", a.URL, err))
			continue
		}
		rehosted = append(rehosted, m)
	}
	return rehosted, errs
}

func (f *MediaFlowImpl) download(ctx context.Context, attachment dto.InboundAttachment) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", attachment.URL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if f.cfg.MaxSizeBytes > 0 {
		reader = io.LimitReader(resp.Body, f.cfg.MaxSizeBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return data, contentType, nil
}

func (f *MediaFlowImpl) uploadThumbnail(ctx context.Context, hash string, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumb := resizeImage(img, 512)
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, thumb, &jpeg.Options{Quality: 75}); err != nil {
		return "", err
	}
	return f.storage.Put(ctx, hash+"_thumb.jpg", buf.Bytes(), "image/jpeg", nil)
}

// cleanDisplayName derives a readable filename from the attachment URL,
// falling back to a content-type based name for opaque provider URLs
func cleanDisplayName(rawURL, contentType string) string {
	name := rawURL
	// Base only the path component so a host-only URL cannot leak the
	// hostname as a filename
	if u, err := url.Parse(rawURL); err == nil {
		name = u.Path
	}
	base := path.Base(name)
	if idx := strings.IndexAny(base, "?#"); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" || !strings.Contains(base, ".") {
		kind := "file"
		if slash := strings.Index(contentType, "/"); slash > 0 {
			kind = contentType[:slash]
		}
		return kind + extensionFor(contentType)
	}
	return base
}

func extensionFor(contentType string) string {
	if ext, ok := mediaExtensions[contentType]; ok {
		return ext
	}
	return ".bin"
}

func resizeImage(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxDim
		nh = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		nh = maxDim
		nw = int(float64(w) * float64(maxDim) / float64(h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
