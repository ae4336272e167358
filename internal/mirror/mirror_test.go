// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps objects in memory and pages listings two keys at a time.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	failGet map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failGet: map[string]bool{}}
}

func (f *fakeStore) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := start + 2
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (f *fakeStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	if f.failGet[key] {
		return nil, errors.New("access denied")
	}
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.objects[key] = b
	f.puts = append(f.puts, key)
	return &s3.PutObjectOutput{}, nil
}

func entryName(lang, content string) string {
	return lang + "-" + strings.Repeat(content, 64) + "-" + strings.Repeat("0", 32) + ".txt"
}

func TestPush(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()

	a, b, c := entryName("eng", "a"), entryName("deu", "b"), entryName("fra", "c")
	for _, n := range []string{a, b, c} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("text of "+n[:3]), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "temp-1-x-"+a), []byte("partial"), 0o644))
	store.objects["hosts/one/"+b] = []byte("already there")

	m := &Mirror{Store: store, Bucket: "bkt", Prefix: "hosts/one", Dir: dir}
	r, err := m.Push(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, r.Transferred)
	assert.Equal(t, 1, r.Skipped)
	assert.Zero(t, r.Failed)
	assert.ElementsMatch(t, []string{"hosts/one/" + a, "hosts/one/" + c}, store.puts)
	assert.Equal(t, []byte("text of eng"), store.objects["hosts/one/"+a])
	assert.Equal(t, []byte("already there"), store.objects["hosts/one/"+b])
}

func TestPush_DryRun(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()
	a := entryName("eng", "a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, a), []byte("x"), 0o644))

	m := &Mirror{Store: store, Bucket: "bkt", Dir: dir, DryRun: true}
	r, err := m.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Transferred)
	assert.Empty(t, store.puts)
}

func TestPull(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()

	names := []string{entryName("eng", "a"), entryName("deu", "b"), entryName("fra", "c"), entryName("ita", "d"), entryName("spa", "e")}
	for _, n := range names {
		store.objects["seed/"+n] = []byte("remote " + n[:3])
	}
	store.objects["seed/notes.txt"] = []byte("not an entry")
	store.objects["other/"+entryName("nld", "f")] = []byte("outside prefix")
	store.objects["seed/nested/"+entryName("por", "9")] = []byte("nested prefix")
	store.failGet["seed/"+names[4]] = true

	require.NoError(t, os.WriteFile(filepath.Join(dir, names[0]), []byte("local eng"), 0o644))

	m := &Mirror{Store: store, Bucket: "bkt", Prefix: "seed", Dir: dir}
	r, err := m.Pull(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, r.Transferred)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)

	got, err := os.ReadFile(filepath.Join(dir, names[0]))
	require.NoError(t, err)
	assert.Equal(t, "local eng", string(got))

	got, err = os.ReadFile(filepath.Join(dir, names[2]))
	require.NoError(t, err)
	assert.Equal(t, "remote fra", string(got))

	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, de := range des {
		assert.False(t, strings.HasPrefix(de.Name(), "temp-"), de.Name())
	}
	assert.NoFileExists(t, filepath.Join(dir, names[4]))
	assert.NoFileExists(t, filepath.Join(dir, "notes.txt"))
	assert.NoFileExists(t, filepath.Join(dir, entryName("por", "9")))
}

func TestPush_NestedRemoteNotSkipped(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()

	a := entryName("eng", "a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, a), []byte("local"), 0o644))
	store.objects["hosts/one/old/"+a] = []byte("archived")

	m := &Mirror{Store: store, Bucket: "bkt", Prefix: "hosts/one/", Dir: dir}
	remote, err := m.Remote(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remote)

	r, err := m.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Transferred)
	assert.Equal(t, []string{"hosts/one/" + a}, store.puts)
}

func TestRemote_NoBucket(t *testing.T) {
	m := &Mirror{Store: newFakeStore(), Dir: t.TempDir()}
	_, err := m.Push(context.Background())
	assert.ErrorIs(t, err, ErrNoBucket)
}
