package miniptm

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/miniptm/mmio"
	"github.com/BeatGlow/miniptm/pci"
)

const (
	testAddr     = "0000:01:00.0"
	testResource = "0x00000000fc800000 0x00000000fc800fff 0x0000000000040200\n"
)

// makeSysfs builds a device directory for an I225 at testAddr. The files
// map overrides or, with an empty value, removes the defaults.
func makeSysfs(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, testAddr)
	contents := map[string]string{
		"vendor":             "0x8086\n",
		"device":             "0x125b\n",
		"resource":           testResource,
		"resource0":          string(make([]byte, 4096)),
		"net/enp1s0/address": "00:00:00:00:00:01\n",
	}
	for name, v := range files {
		contents[name] = v
	}
	for name, v := range contents {
		if v == "" {
			continue
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(v), 0o644))
	}
	return root
}

func newTestSysfsHost(root string) *SysfsHost {
	h := NewSysfsHost(root)
	h.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return h
}

func firstCandidate(t *testing.T, h Host) Candidate {
	t.Helper()
	for c, err := range h.Candidates(DefaultID) {
		require.NoError(t, err)
		return c
	}
	t.Fatal("no candidate")
	return nil
}

func TestSysfsHostCandidates(t *testing.T) {
	h := newTestSysfsHost(makeSysfs(t, nil))

	c := firstCandidate(t, h)
	assert.Equal(t, testAddr, c.String())
	mac, err := c.HardwareAddr()
	require.NoError(t, err)
	assert.Equal(t, "00:00:00:00:00:01", mac.String())
	assert.True(t, (&Matcher{ID: DefaultID, Allow: DefaultAllowList}).Accept(c))
}

func TestSysfsHostCandidatesMissingRoot(t *testing.T) {
	h := newTestSysfsHost(filepath.Join(t.TempDir(), "missing"))

	var n int
	for c, err := range h.Candidates(DefaultID) {
		n++
		assert.Nil(t, c, "no typed nil candidate")
		assert.ErrorIs(t, err, os.ErrNotExist)
	}
	assert.Equal(t, 1, n)
}

func TestSysfsHostCandidatesBadID(t *testing.T) {
	h := newTestSysfsHost(makeSysfs(t, map[string]string{"vendor": "intel\n"}))

	var n int
	for c, err := range h.Candidates(DefaultID) {
		n++
		require.NotNil(t, c)
		assert.Equal(t, testAddr, c.String())
		assert.Error(t, err)
	}
	assert.Equal(t, 1, n)
}

func TestSysfsHostMapFallback(t *testing.T) {
	h := newTestSysfsHost(makeSysfs(t, map[string]string{"resource0": ""}))
	buf := mmio.NewBuffer(MinWindowSize)

	var gotBase uint64
	var gotSize int
	h.mapPhys = func(base uint64, size int) (mmio.Window, error) {
		gotBase, gotSize = base, size
		return buf, nil
	}

	w, err := h.Map(firstCandidate(t, h), 0)
	require.NoError(t, err)
	assert.Same(t, buf, w)
	assert.Equal(t, uint64(0xfc800000), gotBase)
	assert.Equal(t, 4096, gotSize)
}

func TestSysfsHostMapErrors(t *testing.T) {
	h := newTestSysfsHost(makeSysfs(t, map[string]string{"resource": ""}))
	_, err := h.Map(firstCandidate(t, h), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = h.Map(firstCandidate(t, h), 1)
	assert.Error(t, err)

	_, err = h.Map(NewSimDevice(testAddr, nil), 0)
	assert.Error(t, err)

	h = newTestSysfsHost(makeSysfs(t, map[string]string{
		"resource": "0x0 0x0 0x0\n",
	}))
	_, err = h.Map(firstCandidate(t, h), 0)
	assert.ErrorIs(t, err, pci.ErrNoResource)
}
