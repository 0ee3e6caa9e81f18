package icon

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrayIconsDifferByState(t *testing.T) {
	connected := Tray("connected")
	disconnected := Tray("disconnected")

	require.NotEmpty(t, connected)
	assert.NotEqual(t, connected, disconnected)
	assert.Equal(t, disconnected, Tray("unknown"))

	img, err := png.Decode(bytes.NewReader(connected))
	require.NoError(t, err)
	assert.Equal(t, traySize, img.Bounds().Dx())
}

func TestShieldIsTransparentOutside(t *testing.T) {
	img := Shield(Green, 32)
	assert.Zero(t, img.RGBAAt(0, 0).A)
	assert.Zero(t, img.RGBAAt(31, 31).A)
	assert.NotZero(t, img.RGBAAt(16, 8).A)
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder("Firefox")
	assert.Equal(t, AppSize, img.Bounds().Dx())
	assert.Equal(t, AppSize, img.Bounds().Dy())
	assert.Less(t, img.RGBAAt(0, 0).A, uint8(32), "corners are rounded off")
	assert.NotZero(t, img.RGBAAt(AppSize/2, AppSize/2).A)

	assert.Equal(t, tileColor("Firefox"), tileColor("Firefox"))
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "F", initial(" firefox"))
	assert.Equal(t, "?", initial(""))
	assert.Equal(t, "?", initial("Ünicode"))
}
