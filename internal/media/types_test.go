package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindValid(t *testing.T) {
	assert.True(t, KindImage.Valid())
	assert.True(t, KindVoice.Valid())
	assert.True(t, KindFile.Valid())

	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("video").Valid())
	assert.False(t, Kind("IMAGE").Valid())
}
