// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// storedAtMeta is the object metadata key holding the stored time. S3's own
// LastModified only has second resolution.
const storedAtMeta = "stored-at"

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Store keeps one object per entry under Prefix in Bucket.
type S3Store struct {
	Client S3API
	Bucket string
	Prefix string
}

// NewS3Store returns an S3Store.
func NewS3Store(client S3API, bucket string, prefix string) *S3Store {
	return &S3Store{Client: client, Bucket: bucket, Prefix: prefix}
}

func (s *S3Store) objectKey(key string) string {
	return s.Prefix + key
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awsv2.String(s.Bucket),
		Key:    awsv2.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to get cache object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read cache object: %w", err)
	}

	var storedAt time.Time
	if v, ok := out.Metadata[storedAtMeta]; ok {
		storedAt, err = time.Parse(time.RFC3339Nano, v)
		if err != nil {
			log.WithError(err).Debugf("bad %s metadata on %s", storedAtMeta, key)
		}
	}
	if storedAt.IsZero() && out.LastModified != nil {
		storedAt = *out.LastModified
	}

	return Entry{Data: data, StoredAt: storedAt}, true, nil
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: awsv2.String(s.Bucket),
		Key:    awsv2.String(s.objectKey(key)),
		Body:   bytes.NewReader(data),
		Metadata: map[string]string{
			storedAtMeta: time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put cache object: %w", err)
	}
	return nil
}

// Clear implements Store by deleting every object under Prefix.
func (s *S3Store) Clear(ctx context.Context) error {
	p := s3.NewListObjectsV2Paginator(s.Client, &s3.ListObjectsV2Input{
		Bucket: awsv2.String(s.Bucket),
		Prefix: awsv2.String(s.Prefix),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list cache objects: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = s.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: awsv2.String(s.Bucket),
			Delete: &types.Delete{Objects: ids, Quiet: awsv2.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete cache objects: %w", err)
		}
	}
	return nil
}
