// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage backend for
// published site files. It wraps the AWS SDK v2 and is configured for
// path-style access (required by CEPH/Hetzner). Each user site lives
// under a sites/<subdomain>/ prefix; the serving layer maps
// <subdomain>.<hosting root> onto that prefix.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// sitePrefix is the bucket prefix under which all user sites live.
const sitePrefix = "sites/"

// directoryContentType marks zero-byte placeholder objects that stand in
// for directories, which S3 does not have natively.
const directoryContentType = "application/x-directory"

// Client wraps an S3 client for site file operations on the sites bucket.
type Client struct {
	s3          *s3.Client
	bucket      string
	endpoint    string
	hostingRoot string // e.g. "planora.site"; empty falls back to path-style URLs
	publicURL   string // optional CDN base that replaces path-style URLs
}

// New creates an S3 storage client configured for CEPH/Hetzner with
// path-style addressing. publicURL, when set, is the CDN or direct base
// URL files are served from instead of the raw S3 endpoint. Returns
// (nil, nil) if endpoint or credentials are empty, allowing the app to
// start without storage.
func New(endpoint, region, accessKey, secretKey, bucket, hostingRoot, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	// Build S3 client with static credentials and path-style access.
	s3Client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Client{
		s3:          s3Client,
		bucket:      bucket,
		endpoint:    endpoint,
		hostingRoot: strings.Trim(hostingRoot, "./"),
		publicURL:   strings.TrimRight(publicURL, "/"),
	}, nil
}

// siteKey builds the object key for a path within a subdomain's site.
func siteKey(subdomain, path string) string {
	return sitePrefix + subdomain + "/" + strings.TrimLeft(path, "/")
}

// CreateEndpoint establishes the storage area for a new subdomain by
// writing a site marker object. Creating an endpoint that already exists
// is a no-op overwrite.
func (c *Client) CreateEndpoint(ctx context.Context, subdomain string) error {
	return c.putMarker(ctx, siteKey(subdomain, ".site"))
}

// Mkdir ensures a directory exists within a subdomain's site by writing
// a zero-byte placeholder object.
func (c *Client) Mkdir(ctx context.Context, subdomain, dir string) error {
	dir = strings.Trim(dir, "/")
	return c.putMarker(ctx, siteKey(subdomain, dir+"/.keep"))
}

func (c *Client) putMarker(ctx context.Context, key string) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(nil),
		ContentType: aws.String(directoryContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 marker %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Write stores a file within a subdomain's site with public-read ACL and
// returns its public URL.
func (c *Client) Write(ctx context.Context, subdomain, path, contentType string, data []byte) (string, error) {
	key := siteKey(subdomain, path)
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("s3 write %s/%s: %w", c.bucket, key, err)
	}
	return c.URL(subdomain, path), nil
}

// RemoveAll deletes every object under a directory within a subdomain's
// site. Used when a project is removed.
func (c *Client) RemoveAll(ctx context.Context, subdomain, dir string) error {
	prefix := siteKey(subdomain, strings.Trim(dir, "/")+"/")

	var token *string
	for {
		page, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(c.bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return fmt.Errorf("s3 list %s/%s: %w", c.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("s3 delete %s/%s: %w", c.bucket, *obj.Key, err)
			}
		}
		if page.NextContinuationToken == nil {
			return nil
		}
		token = page.NextContinuationToken
	}
}

// URL returns the public URL for a file within a subdomain's site.
// Uses subdomain addressing under the hosting root when configured,
// then the CDN base when one is set, otherwise builds a path-style URL
// against the S3 endpoint.
func (c *Client) URL(subdomain, path string) string {
	path = strings.TrimLeft(path, "/")
	if c.hostingRoot != "" {
		return "https://" + subdomain + "." + c.hostingRoot + "/" + path
	}
	if c.publicURL != "" {
		return c.publicURL + "/" + siteKey(subdomain, path)
	}
	return c.endpoint + "/" + c.bucket + "/" + siteKey(subdomain, path)
}

// Owns reports whether a URL points at a file served from this storage.
// Upload paths use it to skip re-uploading files that are already hosted.
func (c *Client) Owns(rawURL string) bool {
	if c.hostingRoot != "" {
		u, err := url.Parse(rawURL)
		if err == nil && strings.HasSuffix(u.Host, "."+c.hostingRoot) {
			return true
		}
	}
	if c.publicURL != "" && strings.HasPrefix(rawURL, c.publicURL+"/"+sitePrefix) {
		return true
	}
	return strings.HasPrefix(rawURL, c.endpoint+"/"+c.bucket+"/"+sitePrefix)
}
