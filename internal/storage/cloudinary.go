package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains credentials required to talk to Cloudinary.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Cloudinary implements the Gateway interface against the Cloudinary API.
// References are Cloudinary public IDs scoped to the configured folder.
type Cloudinary struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// NewCloudinary constructs the Cloudinary storage driver.
func NewCloudinary(cfg CloudinaryConfig, logger zerolog.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	folder := strings.Trim(cfg.Folder, "/")
	if folder == "" {
		folder = "students"
	}

	return &Cloudinary{
		client: cld,
		folder: folder,
		logger: logger.With().Str("component", "storage_cloudinary").Logger(),
	}, nil
}

// Store uploads the blob and returns its public ID as the reference.
func (c *Cloudinary) Store(ctx context.Context, filename string, reader io.Reader) (string, error) {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = sanitizePublicID(base)
	if base == "" {
		base = "foto"
	}

	params := uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     fmt.Sprintf("%s-%s", base, uuid.NewString()),
		ResourceType: "image",
	}

	result, err := c.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	c.logger.Info().Str("public_id", result.PublicID).Msg("blob uploaded to cloudinary")

	return result.PublicID, nil
}

// Delete destroys the referenced asset. Missing assets are not an error.
func (c *Cloudinary) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	result, err := c.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref})
	if err != nil {
		return fmt.Errorf("failed to destroy blob: %w", err)
	}

	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to destroy blob: %s", result.Result)
	}

	return nil
}

// Exists reports whether the referenced asset is known to Cloudinary.
func (c *Cloudinary) Exists(ctx context.Context, ref string) bool {
	if ref == "" {
		return false
	}

	asset, err := c.client.Admin.Asset(ctx, admin.AssetParams{PublicID: ref})
	if err != nil || asset == nil {
		return false
	}

	return asset.PublicID != ""
}

// URL returns the delivery URL for a stored reference.
func (c *Cloudinary) URL(ref string) string {
	if ref == "" {
		return ""
	}

	image, err := c.client.Image(ref)
	if err != nil {
		return ""
	}

	url, err := image.String()
	if err != nil {
		return ""
	}

	return url
}

func sanitizePublicID(name string) string {
	lowered := strings.ToLower(name)
	mapped := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, lowered)

	return strings.Trim(mapped, "-")
}
