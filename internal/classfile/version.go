package classfile

import "fmt"

// JavaVersion names the Java SE release that introduced a class-file major
// version, e.g. 52 → "Java 8".
func JavaVersion(major uint16) string {
	switch {
	case major < 45:
		return fmt.Sprintf("unknown (%d)", major)
	case major <= 48:
		// 45 → 1.1, 46 → 1.2, 47 → 1.3, 48 → 1.4
		return fmt.Sprintf("Java 1.%d", major-44)
	default:
		return fmt.Sprintf("Java %d", major-44)
	}
}

// VersionString formats major.minor with the release name.
func (c *Class) VersionString() string {
	return fmt.Sprintf("%d.%d (%s)", c.Major, c.Minor, JavaVersion(c.Major))
}
