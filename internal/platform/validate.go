package platform

import "fmt"

// MaxNameLen matches the kernel's IFNAMSIZ minus the terminating NUL.
const MaxNameLen = 15

// ValidateName checks an interface name against the allow-list before it is
// used to build any path or system query. Letters, digits, '-', '_' and
// single '.' separators (VLAN names like eth0.100) are accepted.
func ValidateName(name string) error {
	if name == "" {
		return &ReadError{Op: "validate", Err: ErrInvalidName, Detail: "empty"}
	}
	if len(name) > MaxNameLen {
		return &ReadError{Op: "validate", Interface: truncateName(name), Err: ErrInvalidName,
			Detail: fmt.Sprintf("longer than %d bytes", MaxNameLen)}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		case c == '.':
			if i == 0 || i == len(name)-1 || name[i-1] == '.' {
				return &ReadError{Op: "validate", Interface: name, Err: ErrInvalidName, Detail: "misplaced '.'"}
			}
		default:
			return &ReadError{Op: "validate", Interface: fmt.Sprintf("%q", name), Err: ErrInvalidName,
				Detail: fmt.Sprintf("disallowed byte 0x%02x", c)}
		}
	}
	return nil
}

func truncateName(name string) string {
	if len(name) > 32 {
		return fmt.Sprintf("%q...", name[:32])
	}
	return fmt.Sprintf("%q", name)
}
