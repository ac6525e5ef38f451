// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// category thumbnails. It wraps the AWS SDK v2 and is configured for
// path-style access (required by CEPH/Hetzner and MinIO).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"facilityconsole/internal/categorytree"
	"facilityconsole/internal/imaging"
	"facilityconsole/internal/slug"
)

// Client wraps an S3 client for thumbnail operations on one public bucket.
type Client struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for public files
	maxWidth  int
	now       func() time.Time
}

// New creates an S3 storage client with path-style addressing. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without thumbnail support.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string, maxWidth int) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:        s3Client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxWidth:  maxWidth,
		now:       time.Now,
	}, nil
}

// Upload stores a public-read object in the thumbnail bucket.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Delete removes an object from the thumbnail bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// ThumbnailKey builds the object key for a new thumbnail. The source file
// name is kept as a readable suffix after the unique id.
func (c *Client) ThumbnailKey(filename string) string {
	now := c.now()
	key := fmt.Sprintf("thumbnails/%d/%02d/%s", now.Year(), now.Month(), uuid.NewString())
	if s := slug.Generate(strings.TrimSuffix(filename, path.Ext(filename)), 40); s != "" {
		key += "-" + s
	}
	return key + ".jpg"
}

// UploadThumbnail resizes an uploaded image, stores it and returns its
// public URL, which becomes the category's thumbnail reference.
func (c *Client) UploadThumbnail(ctx context.Context, t categorytree.Thumbnail) (string, error) {
	data, err := imaging.Thumbnail(t.Data, c.maxWidth)
	if err != nil {
		return "", fmt.Errorf("thumbnail %s: %w", t.Filename, err)
	}

	key := c.ThumbnailKey(t.Filename)
	if err := c.Upload(ctx, key, imaging.ContentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	slog.Info("thumbnail uploaded", "key", key, "source", t.Filename, "bytes", len(data))
	return c.FileURL(key), nil
}

// DeleteThumbnail removes the object behind a thumbnail reference. Refs
// that do not point into this storage are ignored.
func (c *Client) DeleteThumbnail(ctx context.Context, ref string) error {
	key, ok := c.ExtractS3Key(ref)
	if !ok {
		return nil
	}
	return c.Delete(ctx, key)
}

// FileURL returns the public URL for a file in the bucket.
// Uses the configured public URL if set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// ExtractS3Key extracts the S3 object key from a public file URL.
// Returns the key and true if the URL matches the storage URL pattern,
// or ("", false) if it doesn't belong to this storage.
func (c *Client) ExtractS3Key(rawURL string) (string, bool) {
	if c.publicURL != "" {
		prefix := c.publicURL + "/"
		if strings.HasPrefix(rawURL, prefix) {
			return rawURL[len(prefix):], true
		}
	}

	prefix := c.endpoint + "/" + c.bucket + "/"
	if strings.HasPrefix(rawURL, prefix) {
		return rawURL[len(prefix):], true
	}

	return "", false
}
