package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		ref     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://media/windows/Win11_24H2.iso", "media", "windows/Win11_24H2.iso", false},
		{"s3://media/win.iso", "media", "win.iso", false},
		{"s3://media", "", "", true},
		{"s3://media/", "", "", true},
		{"s3:///win.iso", "", "", true},
		{"s3://media/isos/", "", "", true},
		{"/tmp/win.iso", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, err := ParseURL(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestIsS3URL(t *testing.T) {
	assert.True(t, IsS3URL("s3://b/k"))
	assert.False(t, IsS3URL("/Users/me/Downloads/win.iso"))
	assert.False(t, IsS3URL("https://example.com/win.iso"))
}

func TestCopyWithChecksum(t *testing.T) {
	var dst bytes.Buffer

	res, err := copyWithChecksum(&dst, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "hello", dst.String())
	assert.Equal(t, int64(5), res.Size)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", res.SHA256)
}
