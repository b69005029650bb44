package archive_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/microtravel/pkg/archive"
)

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = string(content)
	}
	return files
}

func TestBuilderFinalize(t *testing.T) {
	b := archive.NewBuilder()
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	for _, item := range []struct{ name, data string }{
		{"beach.jpg", "sand"},
		{"summit.png", "snow"},
		{"harbor.jpg", "boats"},
	} {
		replaced, err := b.Add(item.name, []byte(item.data))
		require.NoError(t, err)
		assert.False(t, replaced)
	}

	art, err := b.Finalize(archive.ArtifactName("images", now), now)
	require.NoError(t, err)

	assert.Equal(t, "images_2026-10-17.zip", art.Name)
	assert.Equal(t, []string{"beach.jpg", "summit.png", "harbor.jpg"}, art.Entries)
	assert.Equal(t, int64(len(art.Data)), art.SizeBytes)

	files := readZip(t, art.Data)
	assert.Equal(t, map[string]string{
		"beach.jpg":  "sand",
		"summit.png": "snow",
		"harbor.jpg": "boats",
	}, files)
}

func TestBuilderDuplicateNameLastWriteWins(t *testing.T) {
	b := archive.NewBuilder()

	_, err := b.Add("trip.jpg", []byte("first"))
	require.NoError(t, err)
	_, err = b.Add("other.jpg", []byte("other"))
	require.NoError(t, err)

	replaced, err := b.Add("trip.jpg", []byte("second"))
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, 2, b.Len())

	art, err := b.Finalize("x.zip", time.Now())
	require.NoError(t, err)

	assert.Equal(t, []string{"trip.jpg", "other.jpg"}, art.Entries)
	assert.Equal(t, "second", readZip(t, art.Data)["trip.jpg"])
}

func TestBuilderEmptyArchive(t *testing.T) {
	art, err := archive.NewBuilder().Finalize("empty.zip", time.Now())
	require.NoError(t, err)
	assert.Empty(t, art.Entries)
	assert.Empty(t, readZip(t, art.Data))
}

func TestBuilderRejectsUseAfterFinalize(t *testing.T) {
	b := archive.NewBuilder()
	_, err := b.Finalize("a.zip", time.Now())
	require.NoError(t, err)

	_, err = b.Add("late.jpg", []byte("x"))
	assert.ErrorIs(t, err, archive.ErrFinalized)

	_, err = b.Finalize("a.zip", time.Now())
	assert.ErrorIs(t, err, archive.ErrFinalized)
}

func TestEntryName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"albums/2026/photo.jpg", "photo.jpg"},
		{`C:\\Users\\me\\photo.jpg`, "photo.jpg"},
		{"  spaced.png  ", "spaced.png"},
		{"", ""},
		{"..", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, archive.EntryName(tt.in))
		})
	}
}

func TestAddRejectsEmptyName(t *testing.T) {
	_, err := archive.NewBuilder().Add("  ", []byte("x"))
	assert.ErrorIs(t, err, archive.ErrEmptyName)
}

func TestArtifactNameDefaultPrefix(t *testing.T) {
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "archive_2026-01-02.zip", archive.ArtifactName("", day))
}
