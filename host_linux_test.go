package miniptm

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/miniptm/mmio"
)

func TestSysfsHostMapResourceFile(t *testing.T) {
	root := makeSysfs(t, nil)
	h := newTestSysfsHost(root)

	w, err := h.Map(firstCandidate(t, h), 0)
	require.NoError(t, err)
	assert.Equal(t, 4096, w.Len())

	w.Write32(RegLEDConfig, LEDErrataValue)
	require.NoError(t, w.Close())

	b, err := os.ReadFile(filepath.Join(root, testAddr, "resource0"))
	require.NoError(t, err)
	assert.Equal(t, uint32(LEDErrataValue), binary.LittleEndian.Uint32(b[RegLEDConfig:]))
}

func TestManagerStartSysfs(t *testing.T) {
	root := makeSysfs(t, nil)
	h := newTestSysfsHost(root)
	r := newFakeRegistrar()
	m := newTestManager(h, r)

	require.Equal(t, 1, m.Start())
	assert.Equal(t, []string{testAddr}, r.chips)
	require.NoError(t, m.Stop())

	b, err := os.ReadFile(filepath.Join(root, testAddr, "resource0"))
	require.NoError(t, err)
	assert.Equal(t, uint32(LEDErrataValue), binary.LittleEndian.Uint32(b[RegLEDConfig:]))
}

func TestSysfsHostMapFailure(t *testing.T) {
	h := newTestSysfsHost(makeSysfs(t, map[string]string{"resource0": ""}))
	errPhys := errors.New("no /dev/mem")
	h.mapPhys = func(uint64, int) (mmio.Window, error) {
		return nil, errPhys
	}

	_, err := h.Map(firstCandidate(t, h), 0)
	assert.ErrorIs(t, err, os.ErrNotExist, "resource file error kept")
	assert.ErrorIs(t, err, errPhys)

	// Failure surfaces as a rejected candidate.
	m := NewManager(h, &ManagerConfig{
		ID:     DefaultID,
		Allow:  DefaultAllowList,
		GPIO:   newFakeRegistrar(),
		Bus:    newFakeRegistrar(),
		Logger: h.Logger,
	})
	assert.Equal(t, 0, m.Start())
}
