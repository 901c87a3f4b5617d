package billing

import "testing"

func TestParseLoad(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Load
	}{
		{"labeled descriptor", "TL=120, DL=80", Load{Total: 120, Demanded: 80}},
		{"bare numbers", "5 3", Load{Total: 5, Demanded: 3}},
		{"smaller first is swapped", "80,100", Load{Total: 100, Demanded: 80}},
		{"equal loads", "7/7", Load{Total: 7, Demanded: 7}},
		{"no digits", "abc", Load{Total: 1, Demanded: 1, Defaulted: true}},
		{"empty", "", Load{Total: 1, Demanded: 1, Defaulted: true}},
		{"one number", "5", Load{Total: 1, Demanded: 1, Defaulted: true}},
		{"three numbers", "5,10,15", Load{Total: 1, Demanded: 1, Defaulted: true}},
		{"decimal splits into two runs", "-5.5", Load{Total: 5, Demanded: 5}},
		{"digits split by letters", "a12b7c", Load{Total: 12, Demanded: 7}},
		{"overflowing digit run", "99999999999999999999 5", Load{Total: 1, Demanded: 1, Defaulted: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseLoad(tc.raw)
			if got != tc.want {
				t.Errorf("ParseLoad(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}
