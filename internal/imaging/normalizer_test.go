package imaging_test

import (
	"testing"

	"wax-intake/internal/imaging"

	"github.com/h2non/bimg"
	"github.com/stretchr/testify/require"
)

func TestTargetFormat(t *testing.T) {
	t.Run("png stays png", func(t *testing.T) {
		format, ok := imaging.TargetFormat("image/png")
		require.True(t, ok)
		require.Equal(t, bimg.PNG, format.Type)
		require.Equal(t, ".png", format.Ext)
		require.Equal(t, "image/png", format.Mime)
	})

	t.Run("jpeg stays jpeg", func(t *testing.T) {
		format, ok := imaging.TargetFormat("image/jpeg")
		require.True(t, ok)
		require.Equal(t, bimg.JPEG, format.Type)
		require.Equal(t, ".jpg", format.Ext)
	})

	t.Run("webp and heic transcode to jpeg", func(t *testing.T) {
		for _, mime := range []string{"image/webp", "image/heic", "image/heif"} {
			format, ok := imaging.TargetFormat(mime)
			require.True(t, ok, mime)
			require.Equal(t, bimg.JPEG, format.Type, mime)
			require.Equal(t, "image/jpeg", format.Mime, mime)
		}
	})

	t.Run("anything else is refused", func(t *testing.T) {
		for _, mime := range []string{"image/gif", "application/pdf", "text/plain", ""} {
			_, ok := imaging.TargetFormat(mime)
			require.False(t, ok, mime)
		}
	})
}

func TestDerivedName(t *testing.T) {
	require.Equal(t, "cover.jpg", imaging.DerivedName("cover.heic", ".jpg"))
	require.Equal(t, "cover.png", imaging.DerivedName("cover.png", ".png"))
	require.Equal(t, "cover.jpg", imaging.DerivedName("cover", ".jpg"))

	t.Run("directories are stripped", func(t *testing.T) {
		require.Equal(t, "passwd.jpg", imaging.DerivedName("../../etc/passwd", ".jpg"))
	})
}
