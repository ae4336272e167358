// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/cacheutil"
	"github.com/staranto/tesscache/internal/inventory"
)

// ObjectStore is the part of the S3 API a mirror needs. *s3.Client satisfies
// it.
type ObjectStore interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror copies cache entries between a local cache directory and a bucket
// prefix. Only entries missing at the destination are transferred; existing
// ones are never overwritten since a name fully determines its content.
type Mirror struct {
	Store  ObjectStore
	Bucket string
	Prefix string
	Dir    string
	DryRun bool
}

// Report tallies one push or pull.
type Report struct {
	Transferred int   `json:"transferred"`
	Skipped     int   `json:"skipped"`
	Failed      int   `json:"failed"`
	Bytes       int64 `json:"bytes"`
}

// ErrNoBucket is returned when no bucket is configured.
var ErrNoBucket = errors.New("no mirror bucket configured")

func (m *Mirror) objectKey(name string) string {
	if m.Prefix == "" {
		return name
	}
	return path.Join(m.Prefix, name)
}

// Remote returns the cache entries stored directly under the prefix, keyed by
// filename. Objects in nested prefixes and objects whose names do not follow
// the cache layout are ignored.
func (m *Mirror) Remote(ctx context.Context) (map[string]int64, error) {
	if m.Bucket == "" {
		return nil, ErrNoBucket
	}

	var prefix string
	if m.Prefix != "" {
		prefix = strings.TrimSuffix(m.Prefix, "/") + "/"
	}
	input := &s3.ListObjectsV2Input{Bucket: aws.String(m.Bucket), Prefix: aws.String(prefix)}

	remote := map[string]int64{}
	p := s3.NewListObjectsV2Paginator(m.Store, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", m.Bucket, m.Prefix, err)
		}
		for _, obj := range page.Contents {
			name, ok := strings.CutPrefix(aws.ToString(obj.Key), prefix)
			if !ok || strings.Contains(name, "/") {
				continue
			}
			if _, ok := cachekey.ParseFilename(name); !ok {
				continue
			}
			remote[name] = aws.ToInt64(obj.Size)
		}
	}
	log.Debugf("found %d entries in s3://%s/%s", len(remote), m.Bucket, m.Prefix)
	return remote, nil
}

// Push uploads local entries the bucket does not have yet.
func (m *Mirror) Push(ctx context.Context) (Report, error) {
	var r Report

	remote, err := m.Remote(ctx)
	if err != nil {
		return r, err
	}
	local, err := inventory.List(m.Dir)
	if err != nil {
		return r, err
	}

	for _, e := range local.Entries {
		if _, ok := remote[e.Name]; ok {
			r.Skipped++
			continue
		}
		if m.DryRun {
			log.Infof("would push %s", e.Name)
			r.Transferred++
			r.Bytes += e.Size
			continue
		}
		if err := m.put(ctx, e); err != nil {
			log.WithError(err).Warnf("failed to push %s", e.Name)
			r.Failed++
			continue
		}
		r.Transferred++
		r.Bytes += e.Size
	}
	return r, ctx.Err()
}

func (m *Mirror) put(ctx context.Context, e inventory.Entry) error {
	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = m.Store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.Bucket),
		Key:           aws.String(m.objectKey(e.Name)),
		Body:          f,
		ContentLength: aws.Int64(e.Size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	log.Debugf("pushed %s", e.Name)
	return nil
}

// Pull downloads entries the local cache does not have yet. Each lands via
// temp-then-rename, so readers never see a partial download.
func (m *Mirror) Pull(ctx context.Context) (Report, error) {
	var r Report

	remote, err := m.Remote(ctx)
	if err != nil {
		return r, err
	}
	local, err := inventory.List(m.Dir)
	if err != nil {
		return r, err
	}
	have := make(map[string]struct{}, len(local.Entries))
	for _, e := range local.Entries {
		have[e.Name] = struct{}{}
	}

	for name, size := range remote {
		if _, ok := have[name]; ok {
			r.Skipped++
			continue
		}
		if m.DryRun {
			log.Infof("would pull %s", name)
			r.Transferred++
			r.Bytes += size
			continue
		}
		n, err := m.get(ctx, name)
		if err != nil {
			log.WithError(err).Warnf("failed to pull %s", name)
			r.Failed++
			continue
		}
		r.Transferred++
		r.Bytes += n
	}
	return r, ctx.Err()
}

func (m *Mirror) get(ctx context.Context, name string) (int64, error) {
	out, err := m.Store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.Bucket),
		Key:    aws.String(m.objectKey(name)),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download: %w", err)
	}
	defer out.Body.Close()

	dst := filepath.Join(m.Dir, name)
	if err := cacheutil.WriteAtomic(dst, out.Body); err != nil {
		return 0, err
	}
	info, err := os.Stat(dst)
	if err != nil {
		return 0, err
	}
	log.Debugf("pulled %s", name)
	return info.Size(), nil
}
