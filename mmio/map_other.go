//go:build !linux

package mmio

func MapFile(_ string, _ int) (Window, error) {
	return nil, ErrNotSupported
}
