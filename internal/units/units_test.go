package units

import "testing"

func TestFormat(t *testing.T) {
	cases := []struct {
		rate float64
		mode Mode
		want string
	}{
		{0, HumanBits, "0.00 bit/s"},
		{125, HumanBits, "1.00 Kbit/s"},
		{1_250_000, HumanBits, "10.0 Mbit/s"},
		{125_000_000, HumanBits, "1.00 Gbit/s"},
		{512, HumanBytes, "512 B/s"},
		{1536, HumanBytes, "1.50 KB/s"},
		{150 * 1024 * 1024, HumanBytes, "150 MB/s"},
		{1000, Bits, "8000.00 bit/s"},
		{1000, Bytes, "1000.00 B/s"},
		{1000, KiloBits, "8.00 kbit/s"},
		{2048, KiloBytes, "2.00 KB/s"},
		{125_000, MegaBits, "1.00 Mbit/s"},
		{1024 * 1024, MegaBytes, "1.00 MB/s"},
		{125_000_000, GigaBits, "1.00 Gbit/s"},
		{1024 * 1024 * 1024, GigaBytes, "1.00 GB/s"},
		{-5, HumanBytes, "0.00 B/s"},
	}
	for _, c := range cases {
		if got := Format(c.rate, c.mode); got != c.want {
			t.Errorf("Format(%v, %s) = %q, want %q", c.rate, c.mode, got, c.want)
		}
	}
}

func TestFormatTotal(t *testing.T) {
	if got := FormatTotal(5*1024*1024, MegaBytes); got != "5.00 MB" {
		t.Errorf("FormatTotal = %q", got)
	}
	if got := FormatTotal(3*1024*1024*1024*1024*1024, HumanBytes); got != "3072 TB" {
		t.Errorf("FormatTotal beyond largest unit = %q", got)
	}
}

func TestParseModeAndNext(t *testing.T) {
	for _, s := range []string{"h", "H", "b", "B", "k", "K", "m", "M", "g", "G"} {
		m, err := ParseMode(s)
		if err != nil || m.String() != s {
			t.Errorf("ParseMode(%q) = %v, %v", s, m, err)
		}
	}
	for _, s := range []string{"", "x", "kb"} {
		if _, err := ParseMode(s); err == nil {
			t.Errorf("ParseMode(%q) should fail", s)
		}
	}
	if GigaBytes.Next() != HumanBits {
		t.Errorf("Next should wrap to h, got %s", GigaBytes.Next())
	}
	if !KiloBits.IsBits() || KiloBytes.IsBits() {
		t.Error("IsBits misclassified")
	}
}
