//go:build !windows

package keyboard

// Send は空の Combo 以外では ErrUnsupported を返します。
func Send(c Combo) error {
	if c.Empty() {
		return nil
	}
	return ErrUnsupported
}
