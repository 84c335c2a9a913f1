package window

// Key is a virtual key code passed to key callbacks.
// Values match GLFW key codes, which use ASCII for printable keys.
type Key uint32

const (
	KeyC         Key = 67  // C key (ASCII)
	KeyF         Key = 70  // F key (ASCII)
	KeyG         Key = 71  // G key (ASCII)
	KeyP         Key = 80  // P key (ASCII)
	KeyR         Key = 82  // R key (ASCII)
	KeyV         Key = 86  // V key (ASCII)
	KeySpace     Key = 32  // Spacebar (ASCII)
	KeyBackspace Key = 259 // Backspace key (GLFW)
	KeyEsc       Key = 256 // Escape key (GLFW)

	Key0 Key = 48 // 0 key (ASCII)
	Key1 Key = 49 // 1 key (ASCII)
	Key2 Key = 50 // 2 key (ASCII)
	Key3 Key = 51 // 3 key (ASCII)
	Key4 Key = 52 // 4 key (ASCII)
	Key5 Key = 53 // 5 key (ASCII)
	Key6 Key = 54 // 6 key (ASCII)
	Key7 Key = 55 // 7 key (ASCII)
	Key8 Key = 56 // 8 key (ASCII)
	Key9 Key = 57 // 9 key (ASCII)
)

// Additional non-printable keys
const (
	KeyF1         Key = 290 // F1 (GLFW)
	KeyF2         Key = 291 // F2 (GLFW)
	KeyF3         Key = 292 // F3 (GLFW)
	KeyLeftShift  Key = 340 // Left Shift (GLFW)
	KeyRightShift Key = 344 // Right Shift (GLFW)
)

// Digit returns the number of a 0-9 key.
//
// Returns:
//   - int: the digit
//   - bool: false if k is not a digit key
func (k Key) Digit() (int, bool) {
	if k < Key0 || k > Key9 {
		return 0, false
	}
	return int(k - Key0), true
}
