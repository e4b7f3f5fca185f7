package upload

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nunu-cli/internal/infra/api"
	apperrors "nunu-cli/internal/pkg/errors"
)

func writeArtifact(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func baseOptions() Options {
	return Options{Name: "Nightly", Platform: "android", ForceMultipart: true, Concurrency: 3}
}

func assertMonotonic(t *testing.T, values []int64, final int64) {
	t.Helper()
	require.NotEmpty(t, values)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1], "progress went backwards at %d", i)
	}
	assert.Equal(t, final, values[len(values)-1])
}

func TestMultipartUpload(t *testing.T) {
	path, data := writeArtifact(t, "game.apk", 10*1024+5)
	transport := newMemTransport(1024)
	engine := NewEngine(transport, transport, nil)

	sink := &recordingSink{}
	var observed []abortCall
	opts := baseOptions()
	opts.Progress = sink
	opts.OnSession = func(buildID, uploadID, objectKey string) {
		observed = append(observed, abortCall{buildID, uploadID, objectKey})
	}

	buildID, err := engine.UploadFile(context.Background(), path, opts)

	require.NoError(t, err)
	assert.Equal(t, "build-1", buildID)
	assert.Equal(t, []abortCall{{"build-1", "upload-1", "builds/build-1"}}, observed)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11}}, transport.batches)

	require.Equal(t, 1, transport.multipartCalls)
	require.Len(t, transport.completed, 11)
	for i, p := range transport.completed {
		assert.Equal(t, i+1, p.PartNumber)
		assert.Equal(t, "etag-"+strconv.Itoa(i+1), p.ETag)
	}
	assert.Equal(t, data, transport.assembled())
	assert.Empty(t, transport.aborts)
	assert.Empty(t, engine.InFlight())
	assert.LessOrEqual(t, transport.peak.Load(), int32(3))

	assertMonotonic(t, sink.snapshot(), int64(len(data)))

	require.Len(t, transport.requests, 1)
	assert.Equal(t, "game.apk", transport.requests[0].FileName)
	assert.Equal(t, int64(len(data)), transport.requests[0].FileSize)
}

func TestPeakConcurrencyIsBounded(t *testing.T) {
	path, _ := writeArtifact(t, "game.exe", 40*512)
	transport := newMemTransport(512)
	transport.delay = 5 * time.Millisecond
	engine := NewEngine(transport, transport, nil)

	opts := baseOptions()
	opts.Platform = "windows"
	opts.Concurrency = 4

	_, err := engine.UploadFile(context.Background(), path, opts)

	require.NoError(t, err)
	assert.LessOrEqual(t, transport.peak.Load(), int32(4))
	assert.GreaterOrEqual(t, transport.peak.Load(), int32(1))
	assert.Len(t, transport.batches, 10)
	for _, batch := range transport.batches {
		assert.Len(t, batch, 4)
	}
}

func TestConcurrencyDoesNotChangeOutcome(t *testing.T) {
	path, data := writeArtifact(t, "game.ipa", 23*700+13)

	run := func(concurrency int) ([]api.UploadedPart, []byte) {
		transport := newMemTransport(700)
		engine := NewEngine(transport, transport, nil)
		opts := baseOptions()
		opts.Platform = "ios-native"
		opts.Concurrency = concurrency

		_, err := engine.UploadFile(context.Background(), path, opts)
		require.NoError(t, err)
		if concurrency == 1 {
			assert.Equal(t, int32(1), transport.peak.Load())
		}
		return transport.completed, transport.assembled()
	}

	sequential, seqData := run(1)
	parallel, parData := run(8)

	assert.Equal(t, sequential, parallel)
	assert.Equal(t, data, seqData)
	assert.Equal(t, data, parData)
}

func TestFailedPartAbortsOnce(t *testing.T) {
	path, _ := writeArtifact(t, "game.apk", 11*1024)
	transport := newMemTransport(1024)
	transport.failPart = 5
	engine := NewEngine(transport, transport, nil)

	_, err := engine.UploadFile(context.Background(), path, baseOptions())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpload))
	assert.Contains(t, err.Error(), "part 5")
	assert.Zero(t, transport.multipartCalls)
	assert.Equal(t, []abortCall{{"build-1", "upload-1", "builds/build-1"}}, transport.aborts)
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}}, transport.batches, "later batches must not start")
	assert.Empty(t, engine.InFlight())
}

func TestAbortFailureDoesNotReplaceError(t *testing.T) {
	path, _ := writeArtifact(t, "game.apk", 4*1024)
	transport := newMemTransport(1024)
	transport.failPart = 1
	transport.abortErr = apperrors.NewAPIError("abort failed", 500, "")
	engine := NewEngine(transport, transport, nil)

	_, err := engine.UploadFile(context.Background(), path, baseOptions())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpload))
	assert.Len(t, transport.aborts, 1)
}

func TestMissingPartURLIsParseError(t *testing.T) {
	path, _ := writeArtifact(t, "game.apk", 5*1024)
	transport := newMemTransport(1024)
	transport.dropURLFor = 2
	engine := NewEngine(transport, transport, nil)

	_, err := engine.UploadFile(context.Background(), path, baseOptions())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
	assert.Len(t, transport.aborts, 1)
	assert.Zero(t, transport.multipartCalls)
}

func TestInconsistentPartCountAborts(t *testing.T) {
	path, _ := writeArtifact(t, "game.apk", 5*1024)
	transport := newMemTransport(1024)
	transport.totalPartsSkew = 1
	engine := NewEngine(transport, transport, nil)

	_, err := engine.UploadFile(context.Background(), path, baseOptions())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeParse))
	assert.Empty(t, transport.batches)
	assert.Len(t, transport.aborts, 1)
}

func TestEmptyFileMultipart(t *testing.T) {
	path, _ := writeArtifact(t, "empty.apk", 0)
	transport := newMemTransport(1024)
	engine := NewEngine(transport, transport, nil)

	sink := &recordingSink{}
	opts := baseOptions()
	opts.Progress = sink

	_, err := engine.UploadFile(context.Background(), path, opts)

	require.NoError(t, err)
	assert.Equal(t, []api.UploadedPart{{PartNumber: 1, ETag: "etag-1"}}, transport.completed)
	assertMonotonic(t, sink.snapshot(), 0)
}

func TestSinglePartUpload(t *testing.T) {
	path, data := writeArtifact(t, "game.deb", 4500)
	transport := newMemTransport(1024)
	engine := NewEngine(transport, transport, nil)

	sink := &recordingSink{}
	var uploadIDs []string
	opts := Options{
		Name:       "Nightly",
		Platform:   "linux",
		AutoDelete: true,
		Tags:       []string{"qa", "nightly"},
		Progress:   sink,
		OnSession: func(buildID, uploadID, objectKey string) {
			uploadIDs = append(uploadIDs, uploadID)
		},
	}

	buildID, err := engine.UploadFile(context.Background(), path, opts)

	require.NoError(t, err)
	assert.Equal(t, "build-s", buildID)
	assert.Equal(t, []string{""}, uploadIDs)
	assert.Equal(t, []string{"build-s"}, transport.singleCompletes)
	assert.Equal(t, data, transport.singleData)
	assert.Empty(t, transport.batches)
	assert.Empty(t, transport.aborts)
	assertMonotonic(t, sink.snapshot(), int64(len(data)))

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, "game.deb", req.FileName)
	assert.Equal(t, "least_recent", req.DeletionPolicy)
	assert.Equal(t, []string{"qa", "nightly"}, req.Tags)
}

func TestUploadFileRoutesBySize(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		force     bool
		multipart bool
	}{
		{"at the limit", 2048, false, false},
		{"one byte over", 2049, false, true},
		{"forced", 10, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := writeArtifact(t, "game.apk", tt.size)
			transport := newMemTransport(1024)
			engine := NewEngine(transport, transport, nil)
			engine.singlePartLimit = 2048

			opts := baseOptions()
			opts.ForceMultipart = tt.force

			buildID, err := engine.UploadFile(context.Background(), path, opts)
			require.NoError(t, err)

			if tt.multipart {
				assert.Equal(t, "build-1", buildID)
				assert.NotEmpty(t, transport.batches)
				assert.Empty(t, transport.singleCompletes)
			} else {
				assert.Equal(t, "build-s", buildID)
				assert.Empty(t, transport.batches)
				assert.Equal(t, []string{"build-s"}, transport.singleCompletes)
			}
		})
	}
}

func TestDeletionPolicyAlwaysSent(t *testing.T) {
	path, _ := writeArtifact(t, "game.apk", 100)
	transport := newMemTransport(1024)
	engine := NewEngine(transport, transport, nil)

	opts := baseOptions()
	opts.ForceMultipart = false
	_, err := engine.UploadFile(context.Background(), path, opts)
	require.NoError(t, err)

	require.Len(t, transport.requests, 1)
	assert.False(t, transport.requests[0].AutoDelete)
	assert.Equal(t, "least_recent", transport.requests[0].DeletionPolicy)
}

func TestSinglePartFailureIsNotAborted(t *testing.T) {
	path, _ := writeArtifact(t, "game.deb", 100)
	transport := newMemTransport(1024)
	transport.failSingle = true
	engine := NewEngine(transport, transport, nil)

	opts := baseOptions()
	opts.ForceMultipart = false

	_, err := engine.UploadFile(context.Background(), path, opts)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 403, appErr.StatusCode)
	assert.Empty(t, transport.aborts)
	assert.Empty(t, transport.singleCompletes)
	assert.Empty(t, engine.InFlight())
}

func TestCancellationLeavesSessionForSweep(t *testing.T) {
	path, _ := writeArtifact(t, "game.apk", 6*1024)
	transport := newMemTransport(1024)
	transport.blockPart = 2
	engine := NewEngine(transport, transport, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := engine.UploadFile(ctx, path, baseOptions())
		done <- err
	}()

	select {
	case <-transport.blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("part 2 never started")
	}
	cancel()

	var err error
	select {
	case err = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("upload did not stop after cancellation")
	}

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCancelled))
	assert.Empty(t, transport.aborts, "the flow itself must not abort")
	assert.Zero(t, transport.multipartCalls)

	inFlight := engine.InFlight()
	require.Len(t, inFlight, 1)
	assert.Equal(t, path, inFlight[0].FilePath)
	assert.Equal(t, "upload-1", inFlight[0].UploadID)

	require.NoError(t, engine.AbortInFlight(context.Background()))
	assert.Equal(t, []abortCall{{"build-1", "upload-1", "builds/build-1"}}, transport.aborts)
	assert.Empty(t, engine.InFlight())

	require.NoError(t, engine.AbortInFlight(context.Background()))
	assert.Len(t, transport.aborts, 1, "each session is aborted once")
}

func TestAbortInFlightCollectsFailures(t *testing.T) {
	transport := newMemTransport(1024)
	transport.abortErr = apperrors.NewAPIError("abort failed", 502, "bad gateway")
	engine := NewEngine(transport, transport, nil)
	engine.registry.add(Session{FilePath: "a.apk", BuildID: "a"})
	engine.registry.add(Session{FilePath: "b.apk", BuildID: "b", UploadID: "u", ObjectKey: "k"})

	err := engine.AbortInFlight(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.apk")
	assert.Contains(t, err.Error(), "b.apk")
	assert.Equal(t, []abortCall{{"a", "", ""}, {"b", "u", "k"}}, transport.aborts)
	assert.Empty(t, engine.InFlight())
}

func TestMissingFile(t *testing.T) {
	transport := newMemTransport(1024)
	engine := NewEngine(transport, transport, nil)

	_, err := engine.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.apk"), baseOptions())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeFileIO))
	assert.Empty(t, transport.requests)
}

func TestOptionsValidate(t *testing.T) {
	valid := baseOptions()
	valid.Concurrency = 0
	require.NoError(t, valid.Validate())
	assert.Equal(t, DefaultConcurrency, valid.Concurrency)

	tests := []struct {
		name    string
		mutate  func(*Options)
		message string
	}{
		{"missing name", func(o *Options) { o.Name = "" }, "Name is required"},
		{"bad platform", func(o *Options) { o.Platform = "switch" }, "Platform must be one of"},
		{"too parallel", func(o *Options) { o.Concurrency = 33 }, "Concurrency=33"},
		{"timeout", func(o *Options) { o.UploadTimeout = 1441 }, "UploadTimeout=1441"},
		{"empty tag", func(o *Options) { o.Tags = []string{""} }, "Tags[0]"},
		{"long tag", func(o *Options) { o.Tags = []string{string(make([]byte, 51))} }, "Tags[0]"},
		{"bad policy", func(o *Options) { o.AutoDelete = true; o.DeletionPolicy = "newest" }, "DeletionPolicy"},
		{"policy without auto delete", func(o *Options) { o.DeletionPolicy = "oldest" }, "requires auto-delete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
