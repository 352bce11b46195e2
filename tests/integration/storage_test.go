package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniostorage "github.com/diangao/vid2script/internal/infra/minio"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

func TestObjectStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Start MinIO container
	minioContainer, err := tcminio.Run(ctx,
		"minio/minio:latest",
		tcminio.WithUsername("minioadmin"),
		tcminio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	defer minioContainer.Terminate(ctx)

	minioEndpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:         minioEndpoint,
		AccessKey:        "minioadmin",
		SecretKey:        "minioadmin",
		UseSSL:           false,
		VideoBucket:      "videos",
		TranscriptBucket: "transcripts",
	})
	require.NoError(t, err)
	require.NoError(t, storage.EnsureBuckets(ctx))

	minioClient, err := miniogo.New(minioEndpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)

	// Seed the video bucket: two videos under the prefix, one video outside
	// it, and one non-video object that must be filtered out.
	seed := map[string]string{
		"batch1/a.mp4":     "fake mp4 payload",
		"batch1/b.mov":     "fake mov payload",
		"batch1/notes.txt": "not a video",
		"batch2/other.mp4": "different prefix",
	}
	for key, body := range seed {
		_, err := minioClient.PutObject(ctx, "videos", key,
			strings.NewReader(body), int64(len(body)),
			miniogo.PutObjectOptions{},
		)
		require.NoError(t, err)
	}

	// Listing honors the prefix and the video extension filter
	keys, err := storage.ListVideos(ctx, "batch1/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"batch1/a.mp4", "batch1/b.mov"}, keys)

	// Download round-trips the object bytes
	dest := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, storage.DownloadVideo(ctx, "batch1/a.mp4", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fake mp4 payload", string(data))

	// Transcript upload lands in the transcript bucket with a sensible
	// content type
	transcript := "[00:00:00] User: hello\n"
	err = storage.UploadTranscript(ctx, "a.txt", strings.NewReader(transcript), int64(len(transcript)))
	require.NoError(t, err)

	obj, err := minioClient.GetObject(ctx, "transcripts", "a.txt", miniogo.GetObjectOptions{})
	require.NoError(t, err)
	var sb strings.Builder
	_, err = io.Copy(&sb, obj)
	require.NoError(t, err)
	assert.Equal(t, transcript, sb.String())

	stat, err := minioClient.StatObject(ctx, "transcripts", "a.txt", miniogo.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", stat.ContentType)
}
