package terminal

import "bufio"

// Key is a decoded keypress.
type Key int

const (
	KeyOther Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyToggle
	KeySave
	KeyQuit
)

// ReadKey decodes one keypress from a raw-mode reader: ANSI arrow sequences,
// Windows console scan codes (0 or 224 prefix), and plain keys.
func ReadKey(r *bufio.Reader) (Key, error) {
	b1, err := r.ReadByte()
	if err != nil {
		return KeyOther, err
	}

	// Windows console arrow sequences
	if b1 == 0 || b1 == 224 {
		b2, err := r.ReadByte()
		if err != nil {
			return KeyOther, err
		}
		switch b2 {
		case 72:
			return KeyUp, nil
		case 80:
			return KeyDown, nil
		case 75:
			return KeyLeft, nil
		case 77:
			return KeyRight, nil
		}
		return KeyOther, nil
	}

	switch b1 {
	case 27: // ESC or ANSI sequence
		if r.Buffered() == 0 {
			return KeyQuit, nil
		}
		b2, _ := r.ReadByte()
		if b2 != '[' || r.Buffered() == 0 {
			return KeyOther, nil
		}
		b3, _ := r.ReadByte()
		switch b3 {
		case 'A':
			return KeyUp, nil
		case 'B':
			return KeyDown, nil
		case 'D':
			return KeyLeft, nil
		case 'C':
			return KeyRight, nil
		}
		return KeyOther, nil
	case ' ', 's', 'S':
		return KeyToggle, nil
	case 'w', 'W':
		return KeySave, nil
	case 'q', 'Q', 3: // Ctrl-C
		return KeyQuit, nil
	case 'k':
		return KeyUp, nil
	case 'j':
		return KeyDown, nil
	}
	return KeyOther, nil
}
